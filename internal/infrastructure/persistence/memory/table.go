package memory

import (
	"maps"

	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// absent marks a key that did not exist when a transaction first wrote it.
const absent = -1

// table is a map of value copies with an optimistic version per row.
// ver returns a pointer to the row's Version field.
type table[K comparable, V any] struct {
	rows map[K]V
	ver  func(*V) *int
}

func newTable[K comparable, V any](ver func(*V) *int) *table[K, V] {
	return &table[K, V]{rows: make(map[K]V), ver: ver}
}

func (t *table[K, V]) clone() *table[K, V] {
	return &table[K, V]{rows: maps.Clone(t.rows), ver: t.ver}
}

// get returns a copy of the row so callers never alias stored state.
func (t *table[K, V]) get(k K) (*V, bool) {
	v, ok := t.rows[k]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (t *table[K, V]) version(k K) int {
	v, ok := t.rows[k]
	if !ok {
		return absent
	}
	return *t.ver(&v)
}

// save performs compare-and-swap on the version and bumps it on success.
// New rows must carry version 0.
func (t *table[K, V]) save(k K, v *V) error {
	current := t.version(k)
	given := *t.ver(v)
	if current == absent {
		if given != 0 {
			return shared.ErrOptimisticLock
		}
	} else if current != given {
		return shared.ErrOptimisticLock
	}
	*t.ver(v) = given + 1
	t.rows[k] = *v
	return nil
}

func (t *table[K, V]) filter(keep func(*V) bool) []*V {
	out := make([]*V, 0)
	for _, v := range t.rows {
		row := v
		if keep(&row) {
			out = append(out, &row)
		}
	}
	return out
}

// writeSet remembers the version each key had in the snapshot before the
// transaction first wrote it.
type writeSet[K comparable] map[K]int

func (w writeSet[K]) touch(k K, snapshotVersion int) {
	if _, seen := w[k]; !seen {
		w[k] = snapshotVersion
	}
}

// validate checks that nobody committed to the touched keys since the snapshot.
func validate[K comparable, V any](base *table[K, V], w writeSet[K]) error {
	for k, origin := range w {
		if base.version(k) != origin {
			return shared.ErrOptimisticLock
		}
	}
	return nil
}

// apply copies the touched rows from the transaction view into base.
func apply[K comparable, V any](base, view *table[K, V], w writeSet[K]) {
	for k := range w {
		if v, ok := view.rows[k]; ok {
			base.rows[k] = v
		}
	}
}
