package core

// Shared holds a value that interrupt handlers and foreground code both
// touch. The only way to reach the value is Borrow, which demands a live
// critical section; no locking happens here beyond that proof.
//
// The zero value holds the zero value of T.
type Shared[T any] struct {
	value T
}

// NewShared returns a cell holding value.
func NewShared[T any](value T) *Shared[T] {
	return &Shared[T]{value: value}
}

// Borrow returns an accessor bound to cs. The accessor stops working the
// moment cs ends.
func (s *Shared[T]) Borrow(cs CriticalSection) Ref[T] {
	cs.check()
	return Ref[T]{cell: s, cs: cs}
}

// Ref is a scoped read/write accessor returned by Shared.Borrow.
type Ref[T any] struct {
	cell *Shared[T]
	cs   CriticalSection
}

// Get returns a copy of the value.
func (r Ref[T]) Get() T {
	r.cs.check()
	return r.cell.value
}

// Set replaces the value.
func (r Ref[T]) Set(v T) {
	r.cs.check()
	r.cell.value = v
}

// Ptr returns a pointer to the value for in-place updates. The pointer
// must not be used after the critical section ends.
func (r Ref[T]) Ptr() *T {
	r.cs.check()
	return &r.cell.value
}
