// Package telemetry reads the platform pose from the flight-controller
// bridge over a line-oriented serial link and publishes it into the frame
// buffer the fusion engine resolves transforms from.
package telemetry

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Porter is the minimal interface needed for the telemetry link. The
// abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// PortMode defines serial link configuration parameters.
type PortMode struct {
	BaudRate int
}

// DefaultPortMode returns the default mode for the telemetry bridge.
func DefaultPortMode() *PortMode {
	return &PortMode{BaudRate: 115200}
}

// OpenPort opens a real serial port at the given path.
func OpenPort(path string, mode *PortMode) (Porter, error) {
	if mode == nil {
		mode = DefaultPortMode()
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: mode.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open telemetry port %s: %w", path, err)
	}
	return port, nil
}
