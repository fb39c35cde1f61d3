package engine

// OrderKeyGap - шаг между порядковыми ключами. Значение подобрано так, чтобы
// исчерпание середины было редким; при исчерпании всегда срабатывает
// переиндексация, поэтому конкретная величина шага не критична.
const OrderKeyGap int64 = 1000

// nextAppendKey возвращает ключ для добавления в конец последовательности.
func nextAppendKey(lastKey int64) int64 {
	return lastKey + OrderKeyGap
}

// keyForPosition вычисляет ключ для вставки на позицию position среди живых
// ключей keys (отсортированы по возрастанию). Второй результат needsReindex
// сигнализирует об исчерпании целочисленного зазора: это ожидаемое состояние,
// а не ошибка, поэтому оно никогда не выражается через error.
func keyForPosition(keys []int64, position int) (key int64, needsReindex bool) {
	if len(keys) == 0 {
		return OrderKeyGap, false
	}
	// Вставка за пределами списка эквивалентна добавлению в конец.
	if position >= len(keys) {
		return nextAppendKey(keys[len(keys)-1]), false
	}
	if position <= 0 {
		half := keys[0] / 2
		if half <= 0 {
			return 0, true
		}
		return half, false
	}

	lo := keys[position-1]
	hi := keys[position]
	mid := lo + (hi-lo)/2
	if mid <= lo || mid >= hi {
		return 0, true
	}
	return mid, false
}

// reindexedKeys возвращает новые ключи (i+1)*GAP для n живых элементов,
// сохраняя их относительный порядок.
func reindexedKeys(n int) []int64 {
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(i+1) * OrderKeyGap
	}
	return keys
}
