package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyForPosition(t *testing.T) {
	t.Run("Empty group yields GAP", func(t *testing.T) {
		key, needsReindex := keyForPosition(nil, 0)
		assert.False(t, needsReindex)
		assert.Equal(t, OrderKeyGap, key)
	})

	t.Run("Insert at position 0 yields half of first key", func(t *testing.T) {
		key, needsReindex := keyForPosition([]int64{1000, 2000, 3000}, 0)
		assert.False(t, needsReindex)
		assert.Equal(t, int64(500), key)
	})

	t.Run("Insert in the middle yields midpoint", func(t *testing.T) {
		key, needsReindex := keyForPosition([]int64{1000, 2000, 3000}, 1)
		assert.False(t, needsReindex)
		assert.Equal(t, int64(1500), key)
	})

	t.Run("Insert past the end is an append", func(t *testing.T) {
		key, needsReindex := keyForPosition([]int64{1000, 2000, 3000}, 3)
		assert.False(t, needsReindex)
		assert.Equal(t, int64(4000), key)

		key, needsReindex = keyForPosition([]int64{1000, 2000, 3000}, 99)
		assert.False(t, needsReindex)
		assert.Equal(t, int64(4000), key)
	})

	t.Run("Adjacent keys exhaust the midpoint", func(t *testing.T) {
		_, needsReindex := keyForPosition([]int64{1000, 1001}, 1)
		assert.True(t, needsReindex)
	})

	t.Run("First key of 1 cannot be halved", func(t *testing.T) {
		_, needsReindex := keyForPosition([]int64{1, 1000}, 0)
		assert.True(t, needsReindex)
	})

	t.Run("Exhaustion is signalled, never an error", func(t *testing.T) {
		// Проверяем, что исчерпание не зависит от того, где именно оно
		// случилось: и в середине, и перед первым элементом сигнал один.
		key, needsReindex := keyForPosition([]int64{2, 3}, 1)
		assert.True(t, needsReindex)
		assert.Equal(t, int64(0), key)
	})
}

func TestNextAppendKey(t *testing.T) {
	assert.Equal(t, OrderKeyGap, nextAppendKey(0))
	assert.Equal(t, int64(4000), nextAppendKey(3000))
	assert.Equal(t, int64(1501+OrderKeyGap), nextAppendKey(1501))
}

func TestReindexedKeys(t *testing.T) {
	keys := reindexedKeys(4)
	assert.Equal(t, []int64{1000, 2000, 3000, 4000}, keys)

	// Все ключи положительные, строго возрастающие, кратны шагу.
	prev := int64(0)
	for _, k := range reindexedKeys(100) {
		assert.Positive(t, k)
		assert.Greater(t, k, prev)
		assert.Zero(t, k%OrderKeyGap)
		prev = k
	}

	assert.Empty(t, reindexedKeys(0))
}
