package models

import "time"

// LifecycleState is the explicit soft-delete state of a resource.
// Only one timestamp (deleted_at) is persisted; the tagged state exists so
// that callers never treat the sentinel field as an implicit tri-state flag.
type LifecycleState string

const (
	// LifecycleActive - запись живая, видна во всех списках по умолчанию.
	LifecycleActive LifecycleState = "active"
	// LifecycleTombstoned - запись помечена удаленной, но физически существует.
	LifecycleTombstoned LifecycleState = "tombstoned"
	// LifecyclePurged - запись физически удалена. Состояние терминальное и
	// никогда не наблюдается на загруженной строке.
	LifecyclePurged LifecycleState = "purged"
)

// LifecycleOf maps the persisted deleted_at sentinel to a tagged state.
func LifecycleOf(deletedAt *time.Time) LifecycleState {
	if deletedAt == nil {
		return LifecycleActive
	}
	return LifecycleTombstoned
}
