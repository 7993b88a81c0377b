// Command cloud-replay resends point-cloud datagrams from a pcap capture
// to a running fusiond, reproducing a recorded approach for offline
// tuning.
//
// Usage:
//
//	go run ./cmd/tools/cloud-replay [flags]
//
// Flags:
//
//	-pcap      Path to the capture file (required)
//	-port      UDP port the clouds were captured on (default: 7500)
//	-target    Address to resend datagrams to (default: localhost:7500)
//	-realtime  Reproduce original inter-packet timing (default: true)
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/targetfusion/internal/ingest"
)

func main() {
	pcapFile := flag.String("pcap", "", "Path to the capture file (required)")
	port := flag.Int("port", 7500, "UDP port the clouds were captured on")
	target := flag.String("target", "localhost:7500", "Address to resend datagrams to")
	realtime := flag.Bool("realtime", true, "Reproduce original inter-packet timing")
	flag.Parse()

	if *pcapFile == "" {
		log.Fatal("Error: -pcap flag is required")
	}

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("Failed to resolve target address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("Failed to dial target: %v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Replaying %s to %s (port filter %d, realtime=%v)", *pcapFile, *target, *port, *realtime)
	start := time.Now()

	sent := 0
	err = ingest.ReadPCAPFile(ctx, *pcapFile, *port, *realtime, func(payload []byte, _ time.Time) error {
		if _, err := conn.Write(payload); err != nil {
			return err
		}
		sent++
		return nil
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("Replay failed after %d datagrams: %v", sent, err)
	}

	log.Printf("Replay done: %d datagrams in %v", sent, time.Since(start).Round(time.Millisecond))
}
