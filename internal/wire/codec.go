package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/fss/internal/bufpool"
)

// MaxPacketLength bounds a single packet's declared length, guarding
// against a corrupt or hostile length prefix driving an unbounded
// allocation.
const MaxPacketLength = 64 << 20 // 64MiB

// ErrBadArgCount is returned when a decoded message's argn does not
// match any shape ValidArgn accepts for its kind.
var ErrBadArgCount = errors.New("wire: invalid argument count for message kind")

// ErrPacketTooLarge is returned when a packet's declared length exceeds
// MaxPacketLength.
var ErrPacketTooLarge = errors.New("wire: packet length exceeds maximum")

// ErrNegativeArgn is returned when a message's argn field is negative.
var ErrNegativeArgn = errors.New("wire: negative argument count")

// ReadMessage reads one framed message from r: a 1-byte kind, an 8-byte
// little-endian signed argn, then argn length-prefixed packets. Reads use
// io.ReadFull so a short read (partial frame still arriving) is retried
// transparently; any other error, including io.EOF on the first byte, is
// surfaced to the caller unwrapped so a clean disconnect is detectable.
//
// On success the returned Message's Args are pooled buffers; callers must
// call ReleaseMessage once done with them.
func ReadMessage(r io.Reader) (*Message, error) {
	var head [9]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	kind := Kind(head[0])
	argn := int64(binary.LittleEndian.Uint64(head[1:9]))
	if argn < 0 {
		return nil, ErrNegativeArgn
	}
	if !ValidArgn(kind, argn) {
		return nil, fmt.Errorf("%w: kind=%s argn=%d", ErrBadArgCount, kind, argn)
	}

	args := make([][]byte, 0, argn)
	for i := int64(0); i < argn; i++ {
		pkt, err := readPacket(r)
		if err != nil {
			for _, a := range args {
				bufpool.Put(a)
			}
			return nil, err
		}
		args = append(args, pkt)
	}
	return &Message{Kind: kind, Args: args}, nil
}

func readPacket(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint64(lenBuf[:])
	if length > MaxPacketLength {
		return nil, ErrPacketTooLarge
	}

	buf := bufpool.Get(int(length))
	if length > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			bufpool.Put(buf)
			return nil, err
		}
	}
	return buf, nil
}

// ReleaseMessage returns every argument packet in m to the buffer pool.
// Call it once the dispatcher has finished consuming m.
func ReleaseMessage(m *Message) {
	if m == nil {
		return
	}
	for _, a := range m.Args {
		bufpool.Put(a)
	}
}

// WriteMessage encodes m into a single buffer and issues one Write call,
// making the send atomic at the message level: a short write from w is
// not retried here, matching the spec's "partial send is not retried at
// the message layer" contract — the caller treats it as connection-fatal.
func WriteMessage(w io.Writer, m *Message) error {
	var buf bytes.Buffer
	buf.Grow(9 + len(m.Args)*8)

	buf.WriteByte(byte(m.Kind))
	var argnBuf [8]byte
	binary.LittleEndian.PutUint64(argnBuf[:], uint64(len(m.Args)))
	buf.Write(argnBuf[:])

	for _, a := range m.Args {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(a)))
		buf.Write(lenBuf[:])
		buf.Write(a)
	}

	_, err := w.Write(buf.Bytes())
	return err
}
