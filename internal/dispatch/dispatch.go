// Package dispatch is the thin translator between a decoded wire message
// and an FSS call: look up the operation, invoke it, marshal the reply,
// and for WRITE/APPEND/READN precede the final reply with any produced
// GETF messages. It never touches a socket directly — it writes through
// the send callback its caller supplies.
package dispatch

import (
	"github.com/marmos91/fss/internal/fss"
	"github.com/marmos91/fss/internal/logger"
	"github.com/marmos91/fss/internal/wire"
)

// Sender writes one reply message to the requesting connection. The
// caller (internal/server) owns the underlying writer and its mutex;
// Dispatcher never buffers or reorders what it sends.
type Sender func(*wire.Message) error

// Dispatcher translates wire messages into fss.FSS calls.
type Dispatcher struct {
	store *fss.FSS
}

// New returns a Dispatcher backed by store.
func New(store *fss.FSS) *Dispatcher {
	return &Dispatcher{store: store}
}

// Handle processes one request from client, writing zero or more reply
// messages through send. The returned error is non-nil only when send
// itself failed (a connection-fatal write error); an FSS-level failure
// is represented as a successfully-sent ERR message, not a Go error.
//
// LOCK is the one kind whose handling may block for an arbitrary time:
// no reply is written until fss.FSS.Lock returns, per the protocol's
// "no reply until grant, ENOENT denial, or validation failure" rule.
func (d *Dispatcher) Handle(client fss.ClientID, req *wire.Message, send Sender) error {
	defer wire.ReleaseMessage(req)

	sb := fss.SendbackHandlerFunc(func(v fss.Victim) {
		if err := send(wire.NewGetf(string(v.Path), v.Data)); err != nil {
			logger.Warn("failed to deliver evicted victim", logger.Path(string(v.Path)), logger.Err(err))
		}
	})
	wh := fss.WaitHandlerFunc(func(id fss.ClientID, err error) {
		logger.Debug("waiter notified of removal", logger.ClientID(int(id)), logger.Err(err))
	})

	switch req.Kind {
	case wire.OPEN, wire.READ, wire.CLOSE, wire.WRITE, wire.APPEND, wire.LOCK, wire.UNLOCK, wire.REMOVE:
		if !fss.ValidPath(req.Path()) {
			return send(wire.NewErr(int64(fss.EINVAL)))
		}
	}

	switch req.Kind {
	case wire.OPEN:
		return d.handleOpen(client, req, sb, wh, send)

	case wire.READ:
		return d.handleRead(client, req, send)

	case wire.READN:
		return d.handleReadN(client, req, send)

	case wire.CLOSE:
		return d.reply(send, d.store.Close(fss.Path(req.Path()), client))

	case wire.WRITE:
		return d.reply(send, d.store.Write(fss.Path(req.Path()), client, req.Bytes(), sb, wh))

	case wire.APPEND:
		return d.reply(send, d.store.Append(fss.Path(req.Path()), client, req.Bytes(), sb, wh))

	case wire.LOCK:
		return d.reply(send, d.store.Lock(fss.Path(req.Path()), client))

	case wire.UNLOCK:
		_, _, err := d.store.Unlock(fss.Path(req.Path()), client)
		return d.reply(send, err)

	case wire.REMOVE:
		return d.reply(send, d.store.Remove(fss.Path(req.Path()), client, wh))

	default:
		return send(wire.NewErr(int64(fss.EINVAL)))
	}
}

func (d *Dispatcher) handleOpen(client fss.ClientID, req *wire.Message, sb fss.SendbackHandler, wh fss.WaitHandler, send Sender) error {
	flags, ok := req.OpenFlags()
	if !ok || !flags.Valid() {
		return send(wire.NewErr(int64(fss.EINVAL)))
	}
	path := fss.Path(req.Path())
	lock := flags&wire.FlagLock != 0

	var err error
	if flags&wire.FlagCreate != 0 {
		err = d.store.Create(path, client, lock, sb, wh)
	} else {
		err = d.store.Open(path, client, lock)
	}
	return d.reply(send, err)
}

func (d *Dispatcher) handleRead(client fss.ClientID, req *wire.Message, send Sender) error {
	data, err := d.store.Read(fss.Path(req.Path()), client)
	if err != nil {
		return send(wire.NewErr(int64(errnoOf(err))))
	}
	if err := send(wire.NewGetf(req.Path(), data)); err != nil {
		return err
	}
	return send(wire.NewOK())
}

func (d *Dispatcher) handleReadN(client fss.ClientID, req *wire.Message, send Sender) error {
	n, ok := req.Int()
	if !ok {
		return send(wire.NewErr(int64(fss.EINVAL)))
	}
	for _, r := range d.store.ReadN(client, int(n)) {
		if err := send(wire.NewGetf(string(r.Path), r.Data)); err != nil {
			return err
		}
	}
	return send(wire.NewOK())
}

// reply sends a canonical OK or, on error, an ERR carrying the failure's
// Errno.
func (d *Dispatcher) reply(send Sender, err error) error {
	if err != nil {
		return send(wire.NewErr(int64(errnoOf(err))))
	}
	return send(wire.NewOK())
}

func errnoOf(err error) fss.Errno {
	if e, ok := fss.AsErrno(err); ok {
		return e
	}
	return fss.EINVAL
}

// HandleDisconnect runs client_cleanup for a closed connection and
// returns the clients promoted to ownership as a result, so the caller
// (internal/server) can log or account for them. In this server's
// synchronous design a promoted client's own still-blocked FSS.Lock call
// already observes its new ownership and returns on its own; this return
// value exists for observability, matching the client_cleanup contract.
func (d *Dispatcher) HandleDisconnect(client fss.ClientID) []fss.ClientID {
	return d.store.ClientCleanup(client)
}
