// Package rwlock provides a writer-preferring reader/writer lock with a
// first-class "release role, wait on a condition, reacquire role"
// primitive.
//
// Plain sync.RWMutex cannot express this: there is no way to drop a held
// role and block on an externally-owned sync.Cond without a window where
// another goroutine could observe the lock as fully released. RWLock
// solves this by exposing its own guarding mutex so a caller-supplied
// sync.Cond can share it, making the release-then-wait sequence atomic
// with respect to RWLock's own bookkeeping.
package rwlock

import "sync"

// RWLock is a reader/writer lock with writer preference: once a writer is
// waiting, new readers block until that writer (and any writers queued
// ahead of it) has run, preventing writer starvation under heavy read
// load.
type RWLock struct {
	mu             sync.Mutex
	cond           *sync.Cond
	readers        int
	writerActive   bool
	waitingWriters int
}

// New returns a ready-to-use RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// L returns the mutex backing this lock's internal condition variable.
// A caller that needs a condition variable sharing the same critical
// section as the lock (e.g. a per-file "lock released" signal) should
// create it with sync.NewCond(l.L()) and pass it to ReadWait/WriteWait.
func (l *RWLock) L() *sync.Mutex {
	return &l.mu
}

// RLock acquires the reader role, blocking while a writer is active or a
// writer is waiting.
func (l *RWLock) RLock() {
	l.mu.Lock()
	for l.writerActive || l.waitingWriters > 0 {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// RUnlock releases the reader role.
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	l.mu.Unlock()
}

// Lock acquires the writer role, blocking while any reader or writer is
// active.
func (l *RWLock) Lock() {
	l.mu.Lock()
	l.waitingWriters++
	for l.writerActive || l.readers > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writerActive = true
	l.mu.Unlock()
}

// Unlock releases the writer role.
func (l *RWLock) Unlock() {
	l.mu.Lock()
	l.writerActive = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// ReadWait atomically releases the reader role, waits on cond (which must
// have been created with sync.NewCond(l.L())), then reacquires the reader
// role before returning. The caller must hold the reader role when
// calling this and will hold it again once it returns.
func (l *RWLock) ReadWait(cond *sync.Cond) {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	cond.Wait()
	for l.writerActive || l.waitingWriters > 0 {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// WriteWait atomically releases the writer role, waits on cond (which
// must have been created with sync.NewCond(l.L())), then reacquires the
// writer role before returning.
func (l *RWLock) WriteWait(cond *sync.Cond) {
	l.mu.Lock()
	l.writerActive = false
	l.cond.Broadcast()
	cond.Wait()
	l.waitingWriters++
	for l.writerActive || l.readers > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writerActive = true
	l.mu.Unlock()
}
