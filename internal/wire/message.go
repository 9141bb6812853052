package wire

import "encoding/binary"

// Message is one decoded frame: a kind plus its argument packets, each an
// owned byte buffer with explicit length (never a NUL-terminated string).
type Message struct {
	Kind Kind
	Args [][]byte
}

// EncodeInt64 encodes n as an 8-byte little-endian packet payload, used
// for READN's count and ERR's errno argument.
func EncodeInt64(n int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf
}

// DecodeInt64 decodes an 8-byte little-endian packet payload produced by
// EncodeInt64. It returns false if buf is the wrong length.
func DecodeInt64(buf []byte) (int64, bool) {
	if len(buf) != 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(buf)), true
}

// NewOK builds a canonical zero-argument OK message.
func NewOK() *Message {
	return &Message{Kind: OK}
}

// NewErr builds an ERR message carrying errno.
func NewErr(errno int64) *Message {
	return &Message{Kind: ERR, Args: [][]byte{EncodeInt64(errno)}}
}

// NewGetf builds a GETF message carrying (path, data).
func NewGetf(path string, data []byte) *Message {
	return &Message{Kind: GETF, Args: [][]byte{[]byte(path), data}}
}

// NewOpen builds an OPEN request carrying (path, flags).
func NewOpen(path string, flags OpenFlags) *Message {
	return &Message{Kind: OPEN, Args: [][]byte{[]byte(path), EncodeInt64(int64(flags))}}
}

// NewPathMessage builds a single-argument, path-carrying request of the
// given kind (READ, CLOSE, LOCK, UNLOCK, REMOVE).
func NewPathMessage(kind Kind, path string) *Message {
	return &Message{Kind: kind, Args: [][]byte{[]byte(path)}}
}

// NewReadN builds a READN request for up to n files (n<=0 means all).
func NewReadN(n int64) *Message {
	return &Message{Kind: READN, Args: [][]byte{EncodeInt64(n)}}
}

// NewWriteOrAppend builds a WRITE/APPEND request carrying (path, buf).
func NewWriteOrAppend(kind Kind, path string, buf []byte) *Message {
	return &Message{Kind: kind, Args: [][]byte{[]byte(path), buf}}
}

// Path returns Args[0] decoded as a path string. Callers must only call
// this on kinds whose first argument is a path.
func (m *Message) Path() string {
	if len(m.Args) == 0 {
		return ""
	}
	return string(m.Args[0])
}

// Bytes returns Args[1], the payload carried by GETF/WRITE/APPEND.
func (m *Message) Bytes() []byte {
	if len(m.Args) < 2 {
		return nil
	}
	return m.Args[1]
}

// Int returns Args[0] decoded as a little-endian signed integer, used by
// READN's count argument.
func (m *Message) Int() (int64, bool) {
	if len(m.Args) == 0 {
		return 0, false
	}
	return DecodeInt64(m.Args[0])
}

// OpenFlags returns Args[1] decoded as an OpenFlags bitset, used by OPEN.
func (m *Message) OpenFlags() (OpenFlags, bool) {
	if len(m.Args) < 2 || len(m.Args[1]) != 8 {
		return 0, false
	}
	n, _ := DecodeInt64(m.Args[1])
	return OpenFlags(n), true
}
