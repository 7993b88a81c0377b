package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/targetfusion/internal/monitoring"
)

// DatagramFunc consumes one captured UDP payload with its capture time.
type DatagramFunc func(payload []byte, captured time.Time) error

// ReadPCAPFile reads point-cloud datagrams out of a capture file and hands
// each UDP payload on udpPort to fn. When realtime is true, the original
// inter-packet timing is reproduced; otherwise packets are delivered as
// fast as they decode. Uses the pure-Go pcap reader, so no libpcap is
// needed for offline replay.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, realtime bool, fn DatagramFunc) error {
	f, err := os.Open(pcapFile)
	if err != nil {
		return fmt.Errorf("open pcap file %s: %w", pcapFile, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("read pcap header: %w", err)
	}

	var (
		packetCount int
		matched     int
		lastStamp   time.Time
	)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[ingest] pcap replay cancelled after %d packets", packetCount)
			return ctx.Err()
		default:
		}

		data, ci, err := r.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				monitoring.Logf("[ingest] pcap replay complete: %d packets, %d matched, %v elapsed",
					packetCount, matched, time.Since(start))
				return nil
			}
			return fmt.Errorf("read packet: %w", err)
		}
		packetCount++

		packet := gopacket.NewPacket(data, r.LinkType(), gopacket.NoCopy)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || int(udp.DstPort) != udpPort || len(udp.Payload) == 0 {
			continue
		}

		if realtime && !lastStamp.IsZero() {
			if gap := ci.Timestamp.Sub(lastStamp); gap > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(gap):
				}
			}
		}
		lastStamp = ci.Timestamp

		matched++
		if err := fn(udp.Payload, ci.Timestamp); err != nil {
			return fmt.Errorf("handle packet %d: %w", packetCount, err)
		}
	}
}
