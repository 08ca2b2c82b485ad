//go:build !visa

package transport

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// OpenVISA is only available when built with the visa tag, which needs the
// NI-VISA headers and library.
func OpenVISA(resource string, log logrus.FieldLogger) (Transport, error) {
	return nil, &TransportError{Op: "open", Err: errors.New("built without VISA support (rebuild with -tags visa)")}
}
