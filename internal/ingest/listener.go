package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/monitoring"
)

// CloudHandler consumes each fully assembled sensor-frame cloud.
type CloudHandler func(cloud.Cloud)

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	FrameID     string
	LogInterval time.Duration
	Handler     CloudHandler
}

// UDPListener receives point-cloud datagrams, assembles sweeps, and hands
// them to the configured handler. It manages the UDP socket and statistics.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	buffer      []byte
	assembler   *Assembler
	handler     CloudHandler

	packets    uint64
	badPackets uint64
	clouds     uint64
}

// NewUDPListener creates a listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = 30 * time.Second
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		buffer:      make([]byte, 65535),
		assembler:   NewAssembler(config.FrameID),
		handler:     config.Handler,
	}
}

// Start listens for datagrams until the context is cancelled or an
// unrecoverable socket error occurs.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("[ingest] could not set receive buffer to %d: %v", l.rcvBuf, err)
		}
	}
	monitoring.Logf("[ingest] listening for point clouds on %s", l.address)

	lastLog := time.Now()
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[ingest] listener stopping (%d packets, %d clouds)", l.packets, l.clouds)
			return ctx.Err()
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, _, err := conn.ReadFromUDP(l.buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		l.handleDatagram(l.buffer[:n], time.Now())

		if time.Since(lastLog) >= l.logInterval {
			monitoring.Logf("[ingest] %d packets, %d bad, %d clouds assembled", l.packets, l.badPackets, l.clouds)
			lastLog = time.Now()
		}
	}
}

func (l *UDPListener) handleDatagram(buf []byte, now time.Time) {
	l.packets++

	h, points, err := DecodeDatagram(buf)
	if err != nil {
		l.badPackets++
		if l.badPackets == 1 || l.badPackets%1000 == 0 {
			monitoring.Logf("[ingest] bad datagram (%d total): %v", l.badPackets, err)
		}
		return
	}

	if done, ok := l.assembler.Add(h, points, now); ok {
		l.clouds++
		if l.handler != nil {
			l.handler(done)
		}
	}
}

// Stats returns packet and cloud counters.
func (l *UDPListener) Stats() (packets, badPackets, clouds uint64) {
	return l.packets, l.badPackets, l.clouds
}
