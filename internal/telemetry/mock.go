package telemetry

import (
	"io"
	"time"
)

// MockPort implements Porter for testing and dev mode.
type MockPort struct {
	io.Reader
	io.WriteCloser
}

// NewMockPort returns a port that replays the given line at the given
// interval, simulating the flight-controller bridge.
func NewMockPort(line []byte, interval time.Duration) *MockPort {
	r, w := io.Pipe()

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(line); err != nil {
				return
			}
		}
	}()

	return &MockPort{Reader: r, WriteCloser: nopWriteCloser{}}
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
