package fss

import (
	"sync"

	"github.com/marmos91/fss/internal/queue"
	"github.com/marmos91/fss/internal/rwlock"
)

// fileEntry is one stored file: its bytes, flags, lock state, and waiter
// queue. Every method below documents the role (reader or writer) that
// must already be held on lock before calling it; fileEntry itself never
// acquires or releases its own lock.
type fileEntry struct {
	data        []byte
	size        int
	globalFlags globalFlag
	clients     map[ClientID]clientFlag

	lock    *rwlock.RWLock
	waiters *queue.Queue[ClientID]

	// lockCond is bound to the owning FSS's global lock mutex, not to
	// lock.L(). A client parked in FSS.Lock releases the global reader
	// role (via global.ReadWait(lockCond)) while it waits, not the file
	// role, so that a concurrent remove of this file — which needs the
	// global writer role — can make progress and broadcast lockCond.
	lockCond *sync.Cond
}

// newFileEntry constructs an empty file entry owned, at creation time, by
// creator. If lock is true, creator is also granted OWNER|MAY_WRITE.
// globalMu is the owning FSS's global lock mutex (see lockCond).
func newFileEntry(creator ClientID, lock bool, globalMu *sync.Mutex) *fileEntry {
	f := &fileEntry{
		data:        make([]byte, 0),
		globalFlags: flagValid,
		clients:     make(map[ClientID]clientFlag, 1),
		lock:        rwlock.New(),
		waiters:     queue.New[ClientID](),
		lockCond:    sync.NewCond(globalMu),
	}

	flags := flagOpen
	if lock {
		flags |= flagOwner | flagMayWrite
	}
	f.clients[creator] = flags
	return f
}

// isOwner reports whether client currently holds OWNER on this file.
func (f *fileEntry) isOwner(client ClientID) bool {
	return f.clients[client]&flagOwner != 0
}

// removeWaiter splices client out of the waiters queue, if present. A
// disconnecting client's pending lock requests are discarded this way.
func (f *fileEntry) removeWaiter(client ClientID) {
	it, err := f.waiters.NewIterator()
	if err != nil {
		return
	}
	defer it.Close()
	for {
		id, ok := it.Next()
		if !ok {
			return
		}
		if id == client {
			it.Remove()
		}
	}
}

// owner returns the ClientID currently holding OWNER, if any.
func (f *fileEntry) owner() (ClientID, bool) {
	for id, flags := range f.clients {
		if flags&flagOwner != 0 {
			return id, true
		}
	}
	return 0, false
}

// open [writer role]. Fails EBADF if already OPEN for client; EBUSY if
// lock=true and another client is OWNER.
func (f *fileEntry) open(client ClientID, lock bool) error {
	if f.clients[client]&flagOpen != 0 {
		return EBADF
	}
	if lock {
		if owner, ok := f.owner(); ok && owner != client {
			return EBUSY
		}
	}

	flags := f.clients[client] | flagOpen
	if lock {
		flags |= flagOwner
	}
	f.clients[client] = flags
	return nil
}

// closeClient [writer role]. Clears OPEN and MAY_WRITE; OWNER is
// preserved (the lock is independent of open state).
func (f *fileEntry) closeClient(client ClientID) {
	f.clients[client] &^= flagOpen | flagMayWrite
}

// read [reader role]. Fails EBADF if not OPEN; EPERM if another client is
// OWNER. Returns a copy of data.
func (f *fileEntry) read(client ClientID) ([]byte, error) {
	if f.clients[client]&flagOpen == 0 {
		return nil, EBADF
	}
	if owner, ok := f.owner(); ok && owner != client {
		return nil, EPERM
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

// validateWrite [writer role] checks write's preconditions without
// mutating state, so a caller can evict capacity between validation and
// the actual write without risking a validation failure after the
// eviction already happened.
func (f *fileEntry) validateWrite(client ClientID, appendMode bool) error {
	if owner, ok := f.owner(); ok && owner != client {
		return EPERM
	}
	if appendMode {
		if f.clients[client]&flagOpen == 0 {
			return EBADF
		}
		return nil
	}
	if f.clients[client]&flagMayWrite == 0 {
		return EPERM
	}
	return nil
}

// write [writer role]. Fails EPERM if another client is OWNER, or (when
// append is false) if MAY_WRITE is unset for client; fails EBADF if
// append is true and client hasn't OPEN'd the file. Appends or replaces
// data, clears MAY_WRITE, sets DIRTY.
func (f *fileEntry) write(client ClientID, buf []byte, appendMode bool) error {
	if err := f.validateWrite(client, appendMode); err != nil {
		return err
	}

	if appendMode {
		f.data = append(f.data, buf...)
	} else {
		f.data = append([]byte(nil), buf...)
	}
	f.size = len(f.data)
	f.clients[client] &^= flagMayWrite
	f.globalFlags |= flagDirty
	return nil
}

// tryLock [writer role]. If there is no owner, or the owner is already
// client, grants OWNER and returns true. Otherwise returns false, meaning
// the caller must enqueue client in waiters.
func (f *fileEntry) tryLock(client ClientID) bool {
	if owner, ok := f.owner(); ok && owner != client {
		return false
	}
	f.clients[client] = f.clients[client] | flagOwner
	return true
}

// unlock [writer role]. Fails EPERM if client is not OWNER. Clears OWNER
// and, if a waiter is queued, promotes it to OWNER and returns it so the
// caller can notify it.
func (f *fileEntry) unlock(client ClientID) (ClientID, bool, error) {
	if f.clients[client]&flagOwner == 0 {
		return 0, false, EPERM
	}
	f.clients[client] &^= flagOwner

	next, res := f.waiters.Pop(false)
	if res != queue.PopOK {
		return 0, false, nil
	}
	f.clients[next] = f.clients[next] | flagOwner
	return next, true, nil
}

// removeClients [writer role]. Clears all per-client flags for every
// listed client (used by client_cleanup).
func (f *fileEntry) removeClients(ids []ClientID) {
	for _, id := range ids {
		delete(f.clients, id)
	}
}
