package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

// https://pkg.go.dev/github.com/google/gousb
// may need to modprobe -r usbtmc if there are device busy errors

// deviceOpener is the part of *gousb.Context used to locate the scope.
type deviceOpener interface {
	OpenDeviceWithVIDPID(vid, pid gousb.ID) (*gousb.Device, error)
}

// USB is a Transport over a pair of bulk endpoints.
type USB struct {
	cfg  Config
	log  logrus.FieldLogger
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

// Open finds the device described by cfg and claims its default interface.
// The returned USB must be closed by the caller.
func Open(cfg Config, log logrus.FieldLogger) (*USB, error) {
	ctx := gousb.NewContext()
	u, err := open(ctx, cfg, log)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	u.ctx = ctx
	return u, nil
}

func open(opener deviceOpener, cfg Config, log logrus.FieldLogger) (*USB, error) {
	log = log.WithField("device", fmt.Sprintf("%04x:%04x", cfg.VendorID, cfg.ProductID))

	dev, err := opener.OpenDeviceWithVIDPID(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID))
	if err != nil {
		if dev != nil {
			dev.Close()
		}
		return nil, classifyOpenErr("open device", err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}

	// Lets the kernel driver (usbtmc) be detached while we hold the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		log.WithError(err).Debug("auto detach not supported")
	}

	// The default interface is always #0 alt #0 in the currently active config.
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, classifyOpenErr("claim interface", err)
	}

	u := &USB{cfg: cfg, log: log, dev: dev, done: done}
	if u.out, err = intf.OutEndpoint(cfg.OutEndpoint); err != nil {
		u.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("%s.OutEndpoint(%d): %w", intf, cfg.OutEndpoint, err)}
	}
	if u.in, err = intf.InEndpoint(cfg.InEndpoint); err != nil {
		u.Close()
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("%s.InEndpoint(%d): %w", intf, cfg.InEndpoint, err)}
	}

	log.Debug("device opened")
	return u, nil
}

// classifyOpenErr maps libusb failures onto ErrDeviceBusy and ErrDeviceNotFound.
// gousb formats the libusb error into the message when claiming an interface
// ("failed to claim interface 0 on ...: libusb: ... [code -6]"),
// so the code is matched by text as well as by errors.Is.
func classifyOpenErr(step string, err error) error {
	switch {
	case isUSBError(err, gousb.ErrorBusy):
		return fmt.Errorf("%w: %s: %v", ErrDeviceBusy, step, err)
	case isUSBError(err, gousb.ErrorNotFound), isUSBError(err, gousb.ErrorNoDevice):
		return fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, step, err)
	}
	return &TransportError{Op: "open", Err: fmt.Errorf("%s: %w", step, err)}
}

func isUSBError(err error, code gousb.Error) bool {
	return errors.Is(err, code) || strings.Contains(err.Error(), code.Error())
}

// Send writes cmd to the OUT endpoint in a single bulk transfer.
func (u *USB) Send(cmd []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.WriteTimeout)
	defer cancel()

	n, err := u.out.WriteContext(ctx, cmd)
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if n != len(cmd) {
		return &TransportError{Op: "write", Err: fmt.Errorf("only %d of %d bytes written", n, len(cmd))}
	}
	u.log.WithField("bytes", n).Trace("bulk out")
	return nil
}

// Receive reads up to maxLen bytes, rounded up to a whole packet, from the IN
// endpoint. A read that times out yields whatever arrived before the deadline,
// usually nothing.
func (u *USB) Receive(maxLen int) ([]byte, error) {
	buf := make([]byte, roundToPacket(maxLen, u.in.Desc.MaxPacketSize))

	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.ReadTimeout)
	defer cancel()

	// n might be greater than zero even if err is not nil.
	n, err := u.in.ReadContext(ctx, buf)
	if err != nil {
		if isTimeout(err) {
			u.log.WithField("bytes", n).Trace("bulk in timed out")
			return timedOutReply(buf[:n]), nil
		}
		return nil, &TransportError{Op: "read", Err: err}
	}
	u.log.WithField("bytes", n).Trace("bulk in")
	return buf[:n], nil
}

// Close releases the interface, the device and the USB context.
func (u *USB) Close() error {
	if u.done != nil {
		u.done()
		u.done = nil
	}
	var err error
	if u.dev != nil {
		err = u.dev.Close()
		u.dev = nil
	}
	if u.ctx != nil {
		if cerr := u.ctx.Close(); err == nil {
			err = cerr
		}
		u.ctx = nil
	}
	return err
}

// isTimeout reports whether a bulk transfer ended because its deadline passed.
// A context deadline shows up as a cancelled transfer.
func isTimeout(err error) bool {
	return errors.Is(err, gousb.TransferTimedOut) ||
		errors.Is(err, gousb.TransferCancelled) ||
		errors.Is(err, gousb.ErrorTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// roundToPacket grows n to a whole number of packets so the device never
// overflows the buffer mid-packet.
func roundToPacket(n, packet int) int {
	if packet <= 0 {
		return n
	}
	if r := n % packet; r != 0 {
		n += packet - r
	}
	return n
}
