package logger

import "log/slog"

// Standard field keys for structured logging across the server, the FSS
// engine, and the wire protocol layer. Use these consistently so log
// aggregation and querying stay uniform.
const (
	KeyConnectionID = "connection_id" // server-assigned connection identifier
	KeyClientID     = "client_id"     // FSS ClientId (connection file descriptor)
	KeyKind         = "kind"          // wire message kind: OPEN, READ, WRITE, ...
	KeyPath         = "path"          // file path the operation targets
	KeySize         = "size"          // byte count (payload length, file size)
	KeyErrno        = "errno"         // wire error code returned to the client
	KeyDurationMs   = "duration_ms"   // operation duration in milliseconds
	KeyError        = "error"         // error message
	KeyEvicted      = "evicted"       // number of files evicted to satisfy a request
	KeyLockOwner    = "lock_owner"    // ClientId currently owning a file lock
	KeyWaiters      = "waiters"       // number of clients queued for a lock
)

// Path returns a slog.Attr for a file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// ClientID returns a slog.Attr for a ClientId.
func ClientID(id int) slog.Attr {
	return slog.Int(KeyClientID, id)
}

// Size returns a slog.Attr for a byte count.
func Size(n int) slog.Attr {
	return slog.Int(KeySize, n)
}

// Errno returns a slog.Attr for a wire error code.
func Errno(code int) slog.Attr {
	return slog.Int(KeyErrno, code)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Evicted returns a slog.Attr for the number of files evicted.
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// LockOwner returns a slog.Attr for the current lock owner's ClientId.
func LockOwner(clientID int) slog.Attr {
	return slog.Int(KeyLockOwner, clientID)
}

// Waiters returns a slog.Attr for the size of a lock waiter queue.
func Waiters(n int) slog.Attr {
	return slog.Int(KeyWaiters, n)
}
