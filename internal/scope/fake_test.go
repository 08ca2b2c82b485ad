package scope

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

// fakeTransport replays canned replies and records what was sent.
type fakeTransport struct {
	sent    []string
	replies [][]byte
	sendErr error
	recvErr error
	maxLens []int
	closed  bool
}

func (f *fakeTransport) Send(cmd []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, string(cmd))
	return nil
}

func (f *fakeTransport) Receive(maxLen int) ([]byte, error) {
	f.maxLens = append(f.maxLens, maxLen)
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	if len(f.replies) == 0 {
		return []byte{}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newTestScope(t *testing.T, replies ...[]byte) (*Scope, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{replies: replies}
	log, _ := test.NewNullLogger()
	return New(ft, WithLogger(log), WithSettle(0)), ft
}

// block prefixes payload with its little-endian length.
func block(payload []byte) []byte {
	n := len(payload)
	return append([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}, payload...)
}
