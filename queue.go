package fibsterm

import "sync"

// UpdateQueue is an unbounded multi-producer, single-consumer queue of display
// updates. Send never blocks, so a slow renderer cannot stall keystroke echo.
type UpdateQueue struct {
	mu     sync.Mutex
	items  []Update
	closed bool
	notify chan struct{} // signaled (non-blocking) when items arrive or on close
}

// NewUpdateQueue creates an empty queue
func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{notify: make(chan struct{}, 1)}
}

// Send appends u to the queue. Updates sent after Close are dropped.
func (q *UpdateQueue) Send(u Update) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, u)
	q.mu.Unlock()
	q.wake()
}

// Receive blocks until an update is available. It returns false once the queue
// is closed and drained.
func (q *UpdateQueue) Receive() (Update, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			u := q.items[0]
			q.items[0] = Update{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return u, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Update{}, false
		}
		<-q.notify
	}
}

// ReceiveBatch blocks until at least one update is available and returns every
// queued update in send order. It returns false once the queue is closed and
// drained.
func (q *UpdateQueue) ReceiveBatch() ([]Update, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			batch := q.items
			q.items = nil
			q.mu.Unlock()
			return batch, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}
		<-q.notify
	}
}

// Close stops accepting updates and wakes the consumer. Already queued updates
// can still be received.
func (q *UpdateQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued updates
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *UpdateQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
