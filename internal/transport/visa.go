//go:build visa

package transport

import (
	"errors"
	"fmt"

	vi "github.com/jpoirier/visa"
	"github.com/sirupsen/logrus"
)

// VI_ERROR_TMO (0xBFFF0015) as a signed status.
const visaErrorTimeout int64 = -1073807339

// VISA is a Transport backed by a VISA session, for hosts where the scope is
// reachable through a VISA resource string such as
// "USB0::0x5345::0x1234::SERIAL::INSTR".
type VISA struct {
	Instr           vi.Object
	ResourceManager vi.Session
	log             logrus.FieldLogger
}

// OpenVISA opens resource through the default VISA resource manager.
func OpenVISA(resource string, log logrus.FieldLogger) (Transport, error) {
	rm, status := vi.OpenDefaultRM()
	if status < vi.SUCCESS {
		return nil, &TransportError{Op: "open", Err: errors.New("could not open a session to the VISA Resource Manager")}
	}

	instr, status := rm.Open(resource, vi.NULL, vi.NULL)
	if status < vi.SUCCESS {
		rm.Close()
		return nil, fmt.Errorf("%w: opening VISA session to %s: status %x", ErrDeviceNotFound, resource, status)
	}

	// TODO: set the session timeout attribute from the read timeout; the VISA default applies for now.
	return &VISA{Instr: instr, ResourceManager: rm, log: log.WithField("resource", resource)}, nil
}

func (v *VISA) Send(cmd []byte) error {
	_, status := v.Instr.Write(cmd, uint32(len(cmd)))
	if status < vi.SUCCESS {
		return &TransportError{Op: "write", Err: fmt.Errorf("error writing to the device: %v", status)}
	}
	return nil
}

func (v *VISA) Receive(maxLen int) ([]byte, error) {
	b, _, status := v.Instr.Read(uint32(maxLen))
	if int64(status) == visaErrorTimeout {
		v.log.WithField("bytes", len(b)).Trace("visa read timed out")
		return timedOutReply(b), nil
	}
	if status < vi.SUCCESS {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("read failed with error code %x", status)}
	}
	return b, nil
}

func (v *VISA) Close() error {
	v.Instr.Close()
	v.ResourceManager.Close()
	return nil
}
