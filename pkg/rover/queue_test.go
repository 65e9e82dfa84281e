package rover

import (
	"errors"
	"testing"
)

func tankAt(level float64) TankCommand {
	return TankCommand{
		Left:  WheelCommand{Forward: true, Value: level},
		Right: WheelCommand{Forward: true, Value: level},
	}
}

func TestQueue_FIFO(t *testing.T) {
	var q commandQueue

	for i := 1; i <= 3; i++ {
		if err := q.enqueue(tankAt(float64(i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	for i := 1; i <= 3; i++ {
		cmd, err := q.dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if cmd.Left.Value != float64(i) {
			t.Errorf("dequeue %d: got %v, want %v", i, cmd.Left.Value, i)
		}
	}
}

func TestQueue_FullAtCapacity(t *testing.T) {
	var q commandQueue

	for i := 1; i <= QueueCapacity; i++ {
		if err := q.enqueue(tankAt(float64(i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	// A fifth command is rejected and the queue is unchanged.
	if err := q.enqueue(tankAt(99)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("enqueue past capacity: got %v, want ErrQueueFull", err)
	}
	if q.depth() != QueueCapacity {
		t.Errorf("depth after rejected enqueue: got %d, want %d", q.depth(), QueueCapacity)
	}
	for i := 1; i <= QueueCapacity; i++ {
		cmd, err := q.dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if cmd.Left.Value != float64(i) {
			t.Errorf("dequeue %d: got %v, want %v (rejected enqueue mutated queue)", i, cmd.Left.Value, i)
		}
	}
}

func TestQueue_EmptyDequeue(t *testing.T) {
	var q commandQueue

	if _, err := q.dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("dequeue empty: got %v, want ErrQueueEmpty", err)
	}
}

func TestQueue_WrapAround(t *testing.T) {
	var q commandQueue

	// Cycle enough times to exercise every cursor position.
	n := 1
	for round := 0; round < 3; round++ {
		for i := 0; i < QueueCapacity; i++ {
			if err := q.enqueue(tankAt(float64(n + i))); err != nil {
				t.Fatalf("round %d enqueue: %v", round, err)
			}
		}
		for i := 0; i < QueueCapacity; i++ {
			cmd, err := q.dequeue()
			if err != nil {
				t.Fatalf("round %d dequeue: %v", round, err)
			}
			if cmd.Left.Value != float64(n) {
				t.Fatalf("round %d: got %v, want %v", round, cmd.Left.Value, n)
			}
			n++
		}
	}
}

func TestQueue_Drain(t *testing.T) {
	var q commandQueue

	q.enqueue(tankAt(1))
	q.enqueue(tankAt(2))
	q.drain()

	if q.depth() != 0 {
		t.Errorf("depth after drain: got %d, want 0", q.depth())
	}
	if _, err := q.dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("dequeue after drain: got %v, want ErrQueueEmpty", err)
	}
}
