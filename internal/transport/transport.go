// Package transport moves raw command and response bytes between the host and
// the oscilloscope.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// Hanmatek DOS1102 identifiers and bulk endpoint numbers.
// OUT endpoint 3 is address 0x03, IN endpoint 1 is address 0x81.
const (
	DefaultVendorID    = 0x5345
	DefaultProductID   = 0x1234
	DefaultOutEndpoint = 3
	DefaultInEndpoint  = 1
)

var (
	// ErrDeviceNotFound is returned by Open when no device matches the vendor/product ID.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceBusy is returned by Open when the interface is claimed by another process or driver.
	ErrDeviceBusy = errors.New("device busy")
)

// TransportError wraps a failure of the underlying USB or VISA stack.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport is a single request/response channel to one instrument.
//
// Receive returns an empty slice and a nil error when the read times out: not
// every command produces a reply.
type Transport interface {
	Send(cmd []byte) error
	Receive(maxLen int) ([]byte, error)
	Close() error
}

// Config selects the device and the timeouts used for bulk transfers.
type Config struct {
	VendorID     uint16
	ProductID    uint16
	OutEndpoint  int
	InEndpoint   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the settings for a Hanmatek DOS1102.
func DefaultConfig() Config {
	return Config{
		VendorID:     DefaultVendorID,
		ProductID:    DefaultProductID,
		OutEndpoint:  DefaultOutEndpoint,
		InEndpoint:   DefaultInEndpoint,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// timedOutReply is what Receive returns when the read deadline passes: the
// bytes that did arrive, never nil.
func timedOutReply(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
