package queue

import (
	"context"
	"testing"

	"github.com/okian/myplaces/internal/domain/identity"
	"github.com/okian/myplaces/internal/domain/model"
)

func job(key string) Job {
	return Job{POI: model.POI{ExternalKey: key, ID: identity.DeriveID(key)}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.POI.ExternalKey != "1" {
		t.Errorf("expected job 1, got %v", j.POI.ExternalKey)
	}

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("1")) || !q.Enqueue(ctx, job("2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("3")) {
		t.Error("expected enqueue to fail when queue is full")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(3))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if !q.Enqueue(ctx, job(k)) {
			t.Fatalf("expected enqueue of %s to succeed", k)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, job("d")) {
		t.Error("expected enqueue to fail after close")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}

	var got []string
	for j := range q.Dequeue(ctx) {
		got = append(got, j.POI.ExternalKey)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected queued jobs in order after close, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job("1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}
