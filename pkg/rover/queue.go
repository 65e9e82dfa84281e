package rover

import "sync"

// QueueCapacity is the number of commands the queue can hold.
const QueueCapacity = 4

// commandQueue is a fixed-capacity circular buffer of tank commands with
// independent read (head) and write (tail) cursors. The ring has one spare
// slot so that head == tail means empty and advancing tail onto head means
// full, with QueueCapacity usable entries.
//
// Enqueue runs in request-handling context and dequeue in the control loop,
// so every cursor update happens under the mutex.
type commandQueue struct {
	mu   sync.Mutex
	buf  [QueueCapacity + 1]TankCommand
	head int
	tail int
}

// enqueue appends a command, copying it into the queue's own storage.
// Returns ErrQueueFull and leaves the queue unchanged when full.
func (q *commandQueue) enqueue(cmd TankCommand) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := (q.tail + 1) % len(q.buf)
	if next == q.head {
		return ErrQueueFull
	}
	q.buf[q.tail] = cmd
	q.tail = next
	return nil
}

// dequeue removes and returns the oldest command.
// Returns ErrQueueEmpty when no command is pending.
func (q *commandQueue) dequeue() (TankCommand, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == q.tail {
		return TankCommand{}, ErrQueueEmpty
	}
	cmd := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	return cmd, nil
}

// drain discards all pending commands. Only halt uses this.
func (q *commandQueue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = q.tail
}

// depth returns the number of pending commands.
func (q *commandQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := q.tail - q.head
	if d < 0 {
		d += len(q.buf)
	}
	return d
}
