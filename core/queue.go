package core

// Node is a queue entry. The caller owns it; a queue only links it.
// A node may be linked into at most one queue at a time.
type Node[T any] struct {
	next  *Node[T]
	queue *Queue[T]
	Value T
}

// Linked reports whether n is currently linked into a queue.
func (n *Node[T]) Linked() bool {
	return n.queue != nil
}

// Queue is an intrusive singly linked FIFO of caller-owned nodes.
// The zero value is an empty queue.
//
// head is nil iff the queue is empty and tail.next is always nil. Every
// operation requires a critical section because interrupt handlers push
// and pop concurrently with foreground code.
type Queue[T any] struct {
	head, tail *Node[T]
}

// link claims n for q, aborting if it is already linked somewhere.
func (q *Queue[T]) link(n *Node[T]) {
	if n.queue != nil {
		Abort("queue: node is already linked")
	}
	n.queue = q
}

// Push links n at the tail.
func (q *Queue[T]) Push(cs CriticalSection, n *Node[T]) {
	cs.check()
	q.link(n)
	n.next = nil
	if q.tail != nil {
		q.tail.next = n
	} else {
		q.head = n
	}
	q.tail = n
}

// PushFront links n at the head.
func (q *Queue[T]) PushFront(cs CriticalSection, n *Node[T]) {
	cs.check()
	q.link(n)
	n.next = q.head
	q.head = n
	if q.tail == nil {
		q.tail = n
	}
}

// Peek returns the head without removing it, or nil if the queue is empty.
func (q *Queue[T]) Peek(cs CriticalSection) *Node[T] {
	cs.check()
	return q.head
}

// Pop unlinks and returns the head, or nil if the queue is empty.
func (q *Queue[T]) Pop(cs CriticalSection) *Node[T] {
	cs.check()
	n := q.head
	if n == nil {
		return nil
	}
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	n.next = nil
	n.queue = nil
	return n
}

// Insert links n in front of the first node whose value is strictly
// greater than n's, or at the tail if there is none. Nodes comparing equal
// keep their arrival order, so repeated inserts give a stable ascending
// sort with the least value at the head.
func (q *Queue[T]) Insert(cs CriticalSection, n *Node[T], less func(a, b T) bool) {
	cs.check()
	q.link(n)
	var prev *Node[T]
	cur := q.head
	for cur != nil && !less(n.Value, cur.Value) {
		prev = cur
		cur = cur.next
	}
	n.next = cur
	if prev == nil {
		q.head = n
	} else {
		prev.next = n
	}
	if cur == nil {
		q.tail = n
	}
}

// Remove unlinks n from anywhere in q. It reports false if n was not
// linked into q.
func (q *Queue[T]) Remove(cs CriticalSection, n *Node[T]) bool {
	cs.check()
	if n.queue != q {
		return false
	}
	var prev *Node[T]
	for cur := q.head; cur != nil; prev, cur = cur, cur.next {
		if cur != n {
			continue
		}
		if prev == nil {
			q.head = n.next
		} else {
			prev.next = n.next
		}
		if q.tail == n {
			q.tail = prev
		}
		n.next = nil
		n.queue = nil
		return true
	}
	// n claims q but is not reachable from head: the chain is corrupt
	Abort("queue: linked node not found")
	return false
}

// Empty reports whether the queue has no nodes.
func (q *Queue[T]) Empty(cs CriticalSection) bool {
	cs.check()
	return q.head == nil
}

// Len counts the linked nodes. O(n).
func (q *Queue[T]) Len(cs CriticalSection) int {
	cs.check()
	n := 0
	for cur := q.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}
