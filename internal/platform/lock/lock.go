// Package lock provides keyed mutual exclusion for single-writer sections.
// Lock returns an unlock func; callers defer it.
package lock

import (
	"context"
	"sync"
)

// Keyed is an in-process keyed mutex. Waiting honours ctx cancellation.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.waiters++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.leave(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.leave(key, s)
		})
	}, nil
}

// leave drops the slot once nobody holds or waits on it.
func (k *Keyed) leave(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(k.slots, key)
	}
}

// Held reports how many keys are currently held or awaited.
func (k *Keyed) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
