// Package scope speaks the DOS1102 command set over a transport.Transport.
//
// Every call is a single request/response exchange; the Scope keeps no state
// between calls other than the transport it owns.
package scope

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neilo40/dos1102_remote/internal/transport"
)

// DefaultReadSize matches the largest reply the scope sends (a screen of
// samples plus header).
const DefaultReadSize = 100000

// Channel is an analog input of the scope.
type Channel int

const (
	CH1 Channel = 1
	CH2 Channel = 2
)

// Channels lists every analog input in display order.
var Channels = []Channel{CH1, CH2}

// ErrInvalidChannel is returned for any channel other than CH1 or CH2.
var ErrInvalidChannel = errors.New("invalid channel")

func (c Channel) String() string { return fmt.Sprintf("CH%d", int(c)) }

func (c Channel) valid() bool { return c == CH1 || c == CH2 }

// ParseChannel accepts "1", "CH1", "ch1" and the same for channel 2.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "CH1":
		return CH1, nil
	case "2", "CH2":
		return CH2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
}

// Scope is a session with one oscilloscope.
type Scope struct {
	t        transport.Transport
	log      logrus.FieldLogger
	readSize int
	settle   time.Duration
}

// Option customises a Scope.
type Option func(*Scope)

// WithLogger sets the logger used for command tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scope) { s.log = log }
}

// WithReadSize sets the maximum number of bytes requested per reply.
func WithReadSize(n int) Option {
	return func(s *Scope) {
		if n > 0 {
			s.readSize = n
		}
	}
}

// WithSettle sets how long QueryAndShowResponse waits between sending and reading.
func WithSettle(d time.Duration) Option {
	return func(s *Scope) { s.settle = d }
}

// New wraps t. The Scope takes ownership of t and closes it in Close.
func New(t transport.Transport, opts ...Option) *Scope {
	s := &Scope{
		t:        t,
		log:      logrus.StandardLogger(),
		readSize: DefaultReadSize,
		settle:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying transport.
func (s *Scope) Close() error {
	return s.t.Close()
}

// Query sends cmd and returns the raw reply, which is empty if the scope sent
// nothing before the read timeout.
func (s *Scope) Query(cmd string) ([]byte, error) {
	if err := s.send(cmd); err != nil {
		return nil, err
	}
	return s.receive(cmd)
}

// Write sends a command that is not expected to produce useful output. The
// scope answers some setters anyway, so one read is done and its result dropped.
func (s *Scope) Write(cmd string) error {
	_, err := s.Query(cmd)
	return err
}

// QueryString sends cmd and returns the reply as text with the line ending trimmed.
func (s *Scope) QueryString(cmd string) (string, error) {
	b, err := s.Query(cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Identify returns the *IDN? string.
func (s *Scope) Identify() (string, error) {
	return s.QueryString("*IDN?")
}

// Run starts acquisition.
func (s *Scope) Run() error {
	return s.Write(":RUNNING RUN")
}

// Stop freezes acquisition so that repeated reads see the same capture.
func (s *Scope) Stop() error {
	return s.Write(":RUNNING STOP")
}

func (s *Scope) send(cmd string) error {
	s.log.WithField("cmd", cmd).Debug("send")
	if err := s.t.Send([]byte(cmd)); err != nil {
		return fmt.Errorf("sending %q: %w", cmd, err)
	}
	return nil
}

func (s *Scope) receive(cmd string) ([]byte, error) {
	b, err := s.t.Receive(s.readSize)
	if err != nil {
		return nil, fmt.Errorf("reading reply to %q: %w", cmd, err)
	}
	s.log.WithFields(logrus.Fields{"cmd": cmd, "bytes": len(b)}).Debug("receive")
	return b, nil
}
