package infra

import (
	"context"
	"testing"
	"time"
)

func TestSlotSemaphore_BlocksWhenFullUntilRelease(t *testing.T) {
	s := NewSlotSemaphore(1)

	release, ok := s.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if s.InUse() != 1 || s.Cap() != 1 {
		t.Fatalf("expected 1/1 in use, got %d/%d", s.InUse(), s.Cap())
	}
	if _, ok := s.TryAcquire(); ok {
		t.Fatalf("expected try-acquire to fail while full")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := s.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail while full")
	}

	release()
	release2, ok := s.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
	release2()
}

func TestSlotSemaphore_DoubleReleaseReturnsOneSlot(t *testing.T) {
	s := NewSlotSemaphore(2)

	r1, _ := s.TryAcquire()
	r2, _ := s.TryAcquire()
	r1()
	r1()
	if s.InUse() != 1 {
		t.Fatalf("expected 1 slot still held, got %d", s.InUse())
	}
	r2()
	if s.InUse() != 0 {
		t.Fatalf("expected empty semaphore, got %d", s.InUse())
	}
}

func TestNewSlotSemaphore_ClampsSize(t *testing.T) {
	if got := NewSlotSemaphore(0).Cap(); got != 1 {
		t.Fatalf("expected minimum capacity 1, got %d", got)
	}
}
