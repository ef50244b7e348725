package locker

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 256

type keyLock struct {
	held chan struct{}
	refs int
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// LocalLocker is an in-process lock per key. Keys are spread over shards by hash,
// distinct keys never contend so locks of different records may nest.
type LocalLocker struct {
	shards []*shard
}

func NewLocalLocker(shards int) *LocalLocker {
	if shards <= 0 {
		shards = defaultShards
	}
	l := &LocalLocker{shards: make([]*shard, shards)}
	for i := range l.shards {
		l.shards[i] = &shard{locks: make(map[string]*keyLock)}
	}
	return l
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.shards[xxhash.Sum64String(key)%uint64(len(l.shards))]

	s.mu.Lock()
	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{held: make(chan struct{}, 1)}
		s.locks[key] = kl
	}
	kl.refs++
	s.mu.Unlock()

	select {
	case kl.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.held
				s.release(key, kl)
			})
		}, nil
	case <-ctx.Done():
		s.release(key, kl)
		return nil, ErrLockTimeout
	}
}

func (s *shard) release(key string, kl *keyLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(s.locks, key)
	}
}

// size reports the keys currently held or waited on
func (l *LocalLocker) size() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.locks)
		s.mu.Unlock()
	}
	return n
}
