package commands

import (
	"fmt"
	"net"

	"github.com/marmos91/fss/internal/fss"
	"github.com/marmos91/fss/internal/wire"
)

// roundTrip dials socketPath, sends req, and returns every reply message
// up to and including the first OK or ERR. A READ reply is GETF followed
// by OK; WRITE, APPEND and a creating OPEN may send GETF messages for
// evicted files before their final OK or ERR; every other kind replies
// with a single OK or ERR.
func roundTrip(req *wire.Message) ([]*wire.Message, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	if err := wire.WriteMessage(conn, req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var replies []*wire.Message
	for {
		reply, err := wire.ReadMessage(conn)
		if err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		replies = append(replies, reply)
		if reply.Kind == wire.OK || reply.Kind == wire.ERR {
			return replies, nil
		}
	}
}

// finalResult reports whether replies ended in OK, returning a friendly
// error (via fss.Errno) when they ended in ERR instead.
func finalResult(replies []*wire.Message) error {
	last := replies[len(replies)-1]
	if last.Kind == wire.OK {
		return nil
	}
	code, ok := last.Int()
	if !ok {
		return fmt.Errorf("server returned a malformed error reply")
	}
	return fss.Errno(code)
}
