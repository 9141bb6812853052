// Package fss implements the in-memory, content-addressable file storage
// engine: a hashed dictionary of path to file entry, a global capacity
// policy enforced by FIFO-skip-locked eviction, and the per-file mandatory
// advisory locks described by the wire protocol's LOCK/UNLOCK messages.
//
// FSS never imports net or the wire codec; callers that need to notify a
// waiting or evicted client supply a WaitHandler/SendbackHandler.
package fss

import (
	"sync/atomic"

	"github.com/marmos91/fss/internal/queue"
	"github.com/marmos91/fss/internal/rwlock"
)

// FSS is the storage engine. The zero value is not usable; construct with
// New.
type FSS struct {
	global *rwlock.RWLock
	files  map[Path]*fileEntry
	order  []Path

	maxBytes, maxFiles int64

	bytesUsed      atomic.Int64
	filesUsed      atomic.Int64
	evictions      atomic.Int64
	highWaterBytes atomic.Int64
	highWaterFiles atomic.Int64

	metrics Collector
}

// New returns an empty FSS bounded by maxBytes and maxFiles. hashBuckets,
// if positive, is used as the files map's initial capacity hint.
// collector may be nil.
func New(maxBytes, maxFiles int64, hashBuckets int, collector Collector) *FSS {
	s := &FSS{
		global:   rwlock.New(),
		maxBytes: maxBytes,
		maxFiles: maxFiles,
		metrics:  collector,
	}
	if hashBuckets > 0 {
		s.files = make(map[Path]*fileEntry, hashBuckets)
	} else {
		s.files = make(map[Path]*fileEntry)
	}
	return s
}

// wakeLockWaiters broadcasts entry.lockCond under the global lock's own
// mutex, matching the lock/wait discipline ReadWait/WriteWait rely on so
// no wakeup is lost to a waiter that is mid-park.
func (s *FSS) wakeLockWaiters(entry *fileEntry) {
	mu := s.global.L()
	mu.Lock()
	entry.lockCond.Broadcast()
	mu.Unlock()
}

func bumpMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func indexOfPath(order []Path, p Path) int {
	for i, x := range order {
		if x == p {
			return i
		}
	}
	return -1
}

// drainWaiters flushes every queued waiter on entry, notifying each with
// ENOENT (the only reason a waiter's whole queue is ever drained: the file
// it wants is gone).
func (s *FSS) drainWaiters(entry *fileEntry, wh WaitHandler) {
	entry.waiters.Flush(func(id ClientID) {
		if wh != nil {
			wh.NotifyError(id, ENOENT)
		}
	})
}

// removeEntryLocked deletes the file at order[idx] (== path), updates
// counters, drains its waiters, and wakes anyone parked in Lock on it.
// Caller must hold the global writer role.
func (s *FSS) removeEntryLocked(path Path, idx int, wh WaitHandler) *fileEntry {
	entry := s.files[path]
	delete(s.files, path)
	s.order = append(s.order[:idx], s.order[idx+1:]...)

	s.bytesUsed.Add(-int64(entry.size))
	s.filesUsed.Add(-1)

	s.drainWaiters(entry, wh)
	s.wakeLockWaiters(entry)
	return entry
}

// evictOneLocked scans order FIFO for the first file (other than exclude)
// with no current OWNER, evicts it, and reports it via sb. Caller must
// hold the global writer role. Returns false if every candidate is
// locked.
func (s *FSS) evictOneLocked(sb SendbackHandler, wh WaitHandler, exclude Path) bool {
	for i, p := range s.order {
		if p == exclude {
			continue
		}
		entry := s.files[p]
		entry.lock.Lock()
		_, locked := entry.owner()
		if locked {
			entry.lock.Unlock()
			continue
		}
		data := entry.data
		dirty := entry.globalFlags&flagDirty != 0
		entry.lock.Unlock()

		s.removeEntryLocked(p, i, wh)
		s.evictions.Add(1)
		if s.metrics != nil {
			s.metrics.RecordEviction()
		}
		if sb != nil {
			sb.SendVictim(Victim{Path: p, Data: data, Modified: dirty})
		}
		return true
	}
	return false
}

// evictBytes evicts victims (excluding exclude) until bytesUsed+need fits
// under maxBytes, or fails E2BIG if no further candidate exists.
func (s *FSS) evictBytes(exclude Path, need int64, sb SendbackHandler, wh WaitHandler) error {
	s.global.Lock()
	defer s.global.Unlock()
	for s.bytesUsed.Load()+need > s.maxBytes {
		if !s.evictOneLocked(sb, wh, exclude) {
			return E2BIG
		}
	}
	return nil
}

// Create inserts a new empty file at path, evicting one file (FIFO,
// skipping locked files) if the store is already at max_files.
func (s *FSS) Create(path Path, client ClientID, lock bool, sb SendbackHandler, wh WaitHandler) error {
	s.global.Lock()
	defer s.global.Unlock()

	if _, exists := s.files[path]; exists {
		return EEXIST
	}
	if s.filesUsed.Load() >= s.maxFiles {
		if !s.evictOneLocked(sb, wh, "") {
			return EBUSY
		}
	}

	entry := newFileEntry(client, lock, s.global.L())
	s.files[path] = entry
	s.order = append(s.order, path)

	filesUsed := s.filesUsed.Add(1)
	bumpMax(&s.highWaterFiles, filesUsed)
	if s.metrics != nil {
		s.metrics.SetHighWater(s.bytesUsed.Load(), s.filesUsed.Load())
	}
	return nil
}

// Open delegates to the named file's open.
func (s *FSS) Open(path Path, client ClientID, lock bool) error {
	s.global.RLock()
	defer s.global.RUnlock()

	entry, ok := s.files[path]
	if !ok {
		return ENOENT
	}
	entry.lock.Lock()
	defer entry.lock.Unlock()
	return entry.open(client, lock)
}

// Close delegates to the named file's closeClient.
func (s *FSS) Close(path Path, client ClientID) error {
	s.global.RLock()
	defer s.global.RUnlock()

	entry, ok := s.files[path]
	if !ok {
		return ENOENT
	}
	entry.lock.Lock()
	defer entry.lock.Unlock()
	entry.closeClient(client)
	return nil
}

// Read returns a copy of the named file's bytes.
func (s *FSS) Read(path Path, client ClientID) ([]byte, error) {
	s.global.RLock()
	defer s.global.RUnlock()

	entry, ok := s.files[path]
	if !ok {
		return nil, ENOENT
	}
	entry.lock.RLock()
	defer entry.lock.RUnlock()
	return entry.read(client)
}

// ReadN walks order in insertion order, skipping files locked by another
// client or not readable by client, returning up to n results (n<=0
// means all). It holds the global reader role for its entire duration.
func (s *FSS) ReadN(client ClientID, n int) []FileSnapshot {
	s.global.RLock()
	defer s.global.RUnlock()

	var out []FileSnapshot
	for _, p := range s.order {
		if n > 0 && len(out) >= n {
			break
		}
		entry := s.files[p]
		entry.lock.RLock()
		if owner, locked := entry.owner(); locked && owner != client {
			entry.lock.RUnlock()
			continue
		}
		data, err := entry.read(client)
		entry.lock.RUnlock()
		if err != nil {
			continue
		}
		out = append(out, FileSnapshot{Path: p, Data: data})
	}
	return out
}

// writeOrAppend is shared by Write and Append. It validates ownership
// under the file's writer role, evicts capacity (without holding any
// file lock) if the store would overflow max_bytes, then retries
// validation and applies the write. A retry means state may have
// changed underneath it (e.g. the file was removed, or the lock was
// stolen), which is why validation always runs again after eviction.
func (s *FSS) writeOrAppend(path Path, client ClientID, buf []byte, appendMode bool, sb SendbackHandler, wh WaitHandler) error {
	for {
		s.global.RLock()
		entry, ok := s.files[path]
		if !ok {
			s.global.RUnlock()
			return ENOENT
		}

		entry.lock.Lock()
		if err := entry.validateWrite(client, appendMode); err != nil {
			entry.lock.Unlock()
			s.global.RUnlock()
			return err
		}

		delta := int64(len(buf))
		if !appendMode {
			delta -= int64(entry.size)
		}

		if delta > 0 && s.bytesUsed.Load()+delta > s.maxBytes {
			entry.lock.Unlock()
			s.global.RUnlock()
			if err := s.evictBytes(path, delta, sb, wh); err != nil {
				return err
			}
			continue
		}

		oldSize := entry.size
		if err := entry.write(client, buf, appendMode); err != nil {
			entry.lock.Unlock()
			s.global.RUnlock()
			return err
		}
		bytesUsed := s.bytesUsed.Add(int64(entry.size - oldSize))
		bumpMax(&s.highWaterBytes, bytesUsed)
		if s.metrics != nil {
			s.metrics.SetHighWater(s.bytesUsed.Load(), s.filesUsed.Load())
		}
		entry.lock.Unlock()
		s.global.RUnlock()
		return nil
	}
}

// Write replaces the named file's contents. Requires MAY_WRITE.
func (s *FSS) Write(path Path, client ClientID, buf []byte, sb SendbackHandler, wh WaitHandler) error {
	return s.writeOrAppend(path, client, buf, false, sb, wh)
}

// Append adds buf to the named file's contents. Requires only OPEN.
func (s *FSS) Append(path Path, client ClientID, buf []byte, sb SendbackHandler, wh WaitHandler) error {
	return s.writeOrAppend(path, client, buf, true, sb, wh)
}

// Lock grants ownership of the named file to client, blocking until it is
// available if another client currently holds it. It parks via the
// global lock's ReadWait (not the file's own WriteWait) so that a
// concurrent Remove or eviction of this file, which needs the global
// writer role, can always make progress while clients are queued.
func (s *FSS) Lock(path Path, client ClientID) error {
	s.global.RLock()
	defer s.global.RUnlock()

	entry, ok := s.files[path]
	if !ok {
		return ENOENT
	}

	entry.lock.Lock()
	granted := entry.tryLock(client)
	if granted {
		entry.lock.Unlock()
		return nil
	}
	if err := entry.waiters.Push(client); err != nil {
		entry.lock.Unlock()
		return err
	}
	entry.lock.Unlock()

	for {
		s.global.ReadWait(entry.lockCond)

		cur, stillExists := s.files[path]
		if !stillExists || cur != entry {
			return ENOENT
		}

		entry.lock.RLock()
		owned := entry.isOwner(client)
		entry.lock.RUnlock()
		if owned {
			return nil
		}
		// Spurious wake from some other waiter's unlock/remove; loop.
	}
}

// Unlock releases client's ownership of the named file. If a waiter is
// queued, it is promoted and returned so the dispatcher can notify it.
func (s *FSS) Unlock(path Path, client ClientID) (next ClientID, hasNext bool, err error) {
	s.global.RLock()
	defer s.global.RUnlock()

	entry, ok := s.files[path]
	if !ok {
		return 0, false, ENOENT
	}

	entry.lock.Lock()
	next, hasNext, err = entry.unlock(client)
	entry.lock.Unlock()
	if err != nil {
		return 0, false, err
	}
	s.wakeLockWaiters(entry)
	return next, hasNext, nil
}

// Remove deletes the named file. Requires client to hold OWNER. Every
// queued waiter is notified with ENOENT.
func (s *FSS) Remove(path Path, client ClientID, wh WaitHandler) error {
	s.global.Lock()
	defer s.global.Unlock()

	entry, ok := s.files[path]
	if !ok {
		return ENOENT
	}
	entry.lock.Lock()
	owned := entry.isOwner(client)
	entry.lock.Unlock()
	if !owned {
		return EPERM
	}

	idx := indexOfPath(s.order, path)
	s.removeEntryLocked(path, idx, wh)
	return nil
}

// ClientCleanup is called when client's connection closes: it clears
// client's flags on every file, splices client out of every waiter
// queue it was parked in, and promotes the next waiter on any file it
// owned. It returns the promoted owners so the dispatcher can notify
// them.
func (s *FSS) ClientCleanup(client ClientID) []ClientID {
	s.global.RLock()
	defer s.global.RUnlock()

	var promoted []ClientID
	for _, p := range s.order {
		entry := s.files[p]
		entry.lock.Lock()

		wasOwner := entry.isOwner(client)
		entry.removeClients([]ClientID{client})
		entry.removeWaiter(client)

		var next ClientID
		var got bool
		if wasOwner {
			id, res := entry.waiters.Pop(false)
			if res == queue.PopOK {
				entry.clients[id] = entry.clients[id] | flagOwner
				next, got = id, true
			}
		}
		entry.lock.Unlock()

		if got {
			s.wakeLockWaiters(entry)
			promoted = append(promoted, next)
		}
	}
	return promoted
}

// Teardown empties the store, draining every file's waiter queue with
// ENOENT. Called once, during server shutdown.
func (s *FSS) Teardown(wh WaitHandler) {
	s.global.Lock()
	defer s.global.Unlock()

	for _, p := range s.order {
		entry := s.files[p]
		s.drainWaiters(entry, wh)
		s.wakeLockWaiters(entry)
	}
	s.files = make(map[Path]*fileEntry)
	s.order = nil
	s.bytesUsed.Store(0)
	s.filesUsed.Store(0)
}

// Stats returns a read-only snapshot of storage-wide accounting.
func (s *FSS) Stats() Stats {
	s.global.RLock()
	defer s.global.RUnlock()
	return Stats{
		BytesUsed:      s.bytesUsed.Load(),
		FilesUsed:      s.filesUsed.Load(),
		MaxBytes:       s.maxBytes,
		MaxFiles:       s.maxFiles,
		HighWaterBytes: s.highWaterBytes.Load(),
		HighWaterFiles: s.highWaterFiles.Load(),
		Evictions:      s.evictions.Load(),
	}
}
