package engine

import "sync"

// KeyedMutex serializes operations per identity key. The merge coordinator
// holds an identity's lock for the whole sign-in transition so a racing
// mutation cannot be overwritten by the merge's final write.
type KeyedMutex struct {
	pool sync.Map // key -> *sync.Mutex
}

// NewKeyedMutex creates an empty lock set.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.pool.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
