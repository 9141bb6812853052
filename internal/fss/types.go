package fss

import (
	"regexp"
	"strings"
)

// Path is a NUL-free, absolute UNIX-style path used as a file's unique key.
type Path string

// pathPattern matches /(seg/)*seg — an absolute path with no empty
// segments and no trailing slash.
var pathPattern = regexp.MustCompile(`^(/[^/\x00]+)+$`)

// ValidPath reports whether p satisfies the path grammar required of a
// file key: absolute, NUL-free, no empty segments, no trailing slash.
func ValidPath(p string) bool {
	if strings.ContainsRune(p, 0) {
		return false
	}
	return pathPattern.MatchString(p)
}

// ClientID identifies an open connection; in practice the connection's
// file descriptor or an equivalent small non-negative integer.
type ClientID int

// globalFlag is a bit in a fileEntry's global flag set.
type globalFlag uint8

const (
	flagValid globalFlag = 1 << iota
	flagDirty
)

// clientFlag is a bit in a fileEntry's per-client flag set.
type clientFlag uint8

const (
	flagOpen clientFlag = 1 << iota
	flagOwner
	flagMayWrite
)

// Stats is a read-only snapshot of storage-wide accounting.
type Stats struct {
	BytesUsed      int64
	FilesUsed      int64
	MaxBytes       int64
	MaxFiles       int64
	HighWaterBytes int64
	HighWaterFiles int64
	Evictions      int64
}

// Victim describes a file evicted to satisfy a Create or Write/Append,
// delivered to the caller via SendbackHandler.
type Victim struct {
	Path     Path
	Data     []byte
	Modified bool // true if the file's DIRTY flag was set at eviction time
}

// WaitHandler is the narrow capability FSS uses to notify a waiting or
// queued client of an asynchronous outcome (lock removed out from under
// it, eviction, teardown). FSS never imports net or the wire protocol;
// the dispatcher supplies this.
type WaitHandler interface {
	NotifyError(client ClientID, err error)
}

// SendbackHandler is the narrow capability FSS uses to deliver evicted
// victims back to the caller of the operation that triggered eviction.
type SendbackHandler interface {
	SendVictim(v Victim)
}

// WaitHandlerFunc adapts a function to WaitHandler.
type WaitHandlerFunc func(client ClientID, err error)

// NotifyError implements WaitHandler.
func (f WaitHandlerFunc) NotifyError(client ClientID, err error) { f(client, err) }

// SendbackHandlerFunc adapts a function to SendbackHandler.
type SendbackHandlerFunc func(v Victim)

// SendVictim implements SendbackHandler.
func (f SendbackHandlerFunc) SendVictim(v Victim) { f(v) }

// FileSnapshot is one (path, bytes) pair produced by ReadN.
type FileSnapshot struct {
	Path Path
	Data []byte
}

// Collector is the narrow capability FSS uses to report activity to
// internal/metrics without importing it directly. A nil Collector is
// valid and simply means no metrics are recorded.
type Collector interface {
	RecordEviction()
	SetHighWater(bytesUsed, filesUsed int64)
}
