package protocol

import (
	"context"
	"sync"
)

// mailbox delivers items to one listener on its own goroutine. Enqueue never
// blocks, so a slow listener cannot stall the read loop or its siblings.
type mailbox[T any] struct {
	fn func(context.Context, T)

	mu       sync.Mutex
	queue    []T
	stopped  bool // drop everything, exit now
	draining bool // deliver what is queued, then exit
	signal   chan struct{}
}

func newMailbox[T any](fn func(context.Context, T)) *mailbox[T] {
	return &mailbox[T]{
		fn:     fn,
		signal: make(chan struct{}, 1),
	}
}

func (m *mailbox[T]) enqueue(item T) {
	m.mu.Lock()
	if m.stopped || m.draining {
		m.mu.Unlock()

		return
	}

	m.queue = append(m.queue, item)
	m.mu.Unlock()

	m.wake()
}

func (m *mailbox[T]) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// stop discards undelivered items.
func (m *mailbox[T]) stop() {
	m.mu.Lock()
	m.stopped = true
	m.queue = nil
	m.mu.Unlock()

	m.wake()
}

// drain delivers what is queued and then exits.
func (m *mailbox[T]) drain() {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()

	m.wake()
}

func (m *mailbox[T]) run(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()

			return
		}

		if len(m.queue) == 0 {
			draining := m.draining
			m.mu.Unlock()

			if draining {
				return
			}

			<-m.signal

			continue
		}

		item := m.queue[0]
		var zero T
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.fn(ctx, item)
	}
}

// listenerSet is the registry of mailboxes for one kind of inbound message.
type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID uint64
	boxes  map[uint64]*mailbox[T]
	closed bool
}

// add registers fn and hands its mailbox to spawn while the set is locked,
// so a concurrent close cannot miss it. ok is false once the set is closed.
func (s *listenerSet[T]) add(fn func(context.Context, T), spawn func(*mailbox[T])) (id uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false
	}

	if s.boxes == nil {
		s.boxes = make(map[uint64]*mailbox[T], 4)
	}

	s.nextID++
	box := newMailbox(fn)
	s.boxes[s.nextID] = box
	spawn(box)

	return s.nextID, true
}

// remove unregisters a listener. With drain its queued items are still
// delivered; otherwise they are discarded.
func (s *listenerSet[T]) remove(id uint64, drain bool) {
	s.mu.Lock()
	box, ok := s.boxes[id]
	delete(s.boxes, id)
	s.mu.Unlock()

	switch {
	case !ok:
	case drain:
		box.drain()
	default:
		box.stop()
	}
}

// dispatch enqueues item on every listener and reports how many there were.
func (s *listenerSet[T]) dispatch(item T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, box := range s.boxes {
		box.enqueue(item)
	}

	return len(s.boxes)
}

// close drains every mailbox and refuses new listeners.
func (s *listenerSet[T]) close() {
	s.mu.Lock()
	s.closed = true
	boxes := s.boxes
	s.boxes = nil
	s.mu.Unlock()

	for _, box := range boxes {
		box.drain()
	}
}
