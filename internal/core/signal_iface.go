package core

import (
	"errors"
	"strconv"
)

// Frame is one encoded outbound text message.
type Frame []byte

// ErrBackpressure is returned by TrySend when the outbound buffer is full.
var ErrBackpressure = errors.New("outbound buffer full")

// ConnID identifies one live transport connection inside a hub instance.
// It is never reused while the connection is alive.
type ConnID uint64

func (id ConnID) String() string { return strconv.FormatUint(uint64(id), 10) }

func ParseConnID(s string) (ConnID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ConnID(v), nil
}

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
