package infra

import (
	"context"
	"sync"
)

// SlotSemaphore é o SlotPool local: um channel com buffer do tamanho do teto.
type SlotSemaphore struct {
	sem chan struct{}
}

func NewSlotSemaphore(size int) *SlotSemaphore {
	if size < 1 {
		size = 1
	}
	return &SlotSemaphore{sem: make(chan struct{}, size)}
}

func (s *SlotSemaphore) Acquire(ctx context.Context) (func(), bool) {
	if release, ok := s.TryAcquire(); ok {
		return release, true
	}
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	case <-ctx.Done():
		return nil, false
	}
}

func (s *SlotSemaphore) TryAcquire() (func(), bool) {
	select {
	case s.sem <- struct{}{}:
		return s.releaser(), true
	default:
		return nil, false
	}
}

func (s *SlotSemaphore) InUse() int { return len(s.sem) }
func (s *SlotSemaphore) Cap() int   { return cap(s.sem) }

func (s *SlotSemaphore) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-s.sem }) }
}
