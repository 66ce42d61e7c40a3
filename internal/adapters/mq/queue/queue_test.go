package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	rec1 := model.IngestRecord{EventID: "2024-1-q-VER", Kind: model.KindQualifying, Season: 2024, Round: 1, DriverCode: "VER"}
	if !q.Enqueue(ctx, rec1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	recordChan := q.Dequeue(ctx)
	rec := <-recordChan
	if rec.EventID != "2024-1-q-VER" {
		t.Errorf("expected 2024-1-q-VER, got %v", rec.EventID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	rec1 := model.IngestRecord{EventID: "2024-1-race", Kind: model.KindRace}
	rec2 := model.IngestRecord{EventID: "2024-1-q-VER", Kind: model.KindQualifying}
	rec3 := model.IngestRecord{EventID: "2024-1-r-VER", Kind: model.KindResult}

	if !q.Enqueue(ctx, rec1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, rec2) {
		t.Error("expected enqueue to succeed")
	}

	// Enqueue when full must be rejected, not block.
	if q.Enqueue(ctx, rec3) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numRecords := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numRecords; j++ {
				rec := model.IngestRecord{
					EventID:    fmt.Sprintf("2024-%d-lap-VER-%d", id, j),
					Kind:       model.KindLap,
					DriverCode: "VER",
					Lap:        j,
				}
				for !q.Enqueue(ctx, rec) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numRecords)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			recordChan := q.Dequeue(ctx)
			for rec := range recordChan {
				consumed <- rec.EventID
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Give consumers time to drain.
	time.Sleep(100 * time.Millisecond)

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	rec1 := model.IngestRecord{EventID: "2024-1-race", Kind: model.KindRace}
	rec2 := model.IngestRecord{EventID: "2024-2-race", Kind: model.KindRace}

	if !q.Enqueue(ctx, rec1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, rec2) {
		t.Error("expected enqueue to succeed")
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if q.Enqueue(ctx, rec1) {
		t.Error("expected enqueue to fail after closing")
	}

	// Buffered records are still drained, then the channel closes.
	recordChan := q.Dequeue(ctx)

	timeout := time.After(100 * time.Millisecond)
	drained := 0
	for {
		select {
		case _, ok := <-recordChan:
			if !ok {
				if drained != 2 {
					t.Errorf("expected to drain 2 records before close, got %d", drained)
				}
				goto channelClosed
			}
			drained++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	if err := q.Close(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped on second close, got %v", err)
	}
}
