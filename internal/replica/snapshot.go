package replica

// Snapshot captures the field state of a replica struct immediately before a
// tentative write. Restore puts the in-memory struct back to that state when
// a persistence step fails after earlier fields were already assigned.
// Snapshots are never persisted.
type Snapshot[T any] struct {
	target *T
	saved  T
}

// TakeSnapshot copies the current value behind target.
func TakeSnapshot[T any](target *T) Snapshot[T] {
	return Snapshot[T]{target: target, saved: *target}
}

// Restore writes the saved field state back to the target.
func (s Snapshot[T]) Restore() {
	if s.target == nil {
		return
	}
	*s.target = s.saved
}
