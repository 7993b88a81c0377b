// Package ingest receives point-cloud datagrams over UDP and replays
// recorded captures offline. The engine itself never touches the wire;
// ingest decodes datagrams into cloud.Cloud values and hands them over.
package ingest

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/geom"
)

// Wire format: little-endian, 16-byte header followed by count * 12 bytes
// of packed float32 x,y,z triples in the sensor frame.
const (
	// Magic identifies a point-cloud datagram.
	Magic = "TFPC"
	// Version is the current wire version.
	Version uint16 = 1

	headerSize    = 16
	bytesPerPoint = 12

	// MaxDatagramPoints keeps encoded datagrams under typical MTU-sized
	// jumbo frames; larger clouds are split across datagrams sharing a
	// sequence number.
	MaxDatagramPoints = 700
)

// Header is the decoded datagram header.
type Header struct {
	Version  uint16
	Count    uint32
	Sequence uint32
}

// EncodeDatagrams packs the cloud into one or more datagrams sharing seq.
func EncodeDatagrams(c cloud.Cloud, seq uint32) [][]byte {
	var out [][]byte
	points := c.Points
	for len(points) > 0 {
		n := len(points)
		if n > MaxDatagramPoints {
			n = MaxDatagramPoints
		}

		buf := make([]byte, headerSize+n*bytesPerPoint)
		copy(buf[0:4], Magic)
		binary.LittleEndian.PutUint16(buf[4:6], Version)
		// buf[6:8] reserved
		binary.LittleEndian.PutUint32(buf[8:12], uint32(n))
		binary.LittleEndian.PutUint32(buf[12:16], seq)

		off := headerSize
		for _, p := range points[:n] {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(p.Z)))
			off += bytesPerPoint
		}

		out = append(out, buf)
		points = points[n:]
	}
	return out
}

// DecodeDatagram parses one datagram into its header and points.
func DecodeDatagram(buf []byte) (Header, []geom.Vec3, error) {
	if len(buf) < headerSize {
		return Header{}, nil, fmt.Errorf("datagram too short: %d bytes", len(buf))
	}
	if string(buf[0:4]) != Magic {
		return Header{}, nil, fmt.Errorf("bad magic %q", buf[0:4])
	}

	h := Header{
		Version:  binary.LittleEndian.Uint16(buf[4:6]),
		Count:    binary.LittleEndian.Uint32(buf[8:12]),
		Sequence: binary.LittleEndian.Uint32(buf[12:16]),
	}
	if h.Version != Version {
		return Header{}, nil, fmt.Errorf("unsupported version %d", h.Version)
	}

	want := headerSize + int(h.Count)*bytesPerPoint
	if len(buf) < want {
		return Header{}, nil, fmt.Errorf("truncated datagram: have %d bytes, want %d", len(buf), want)
	}

	points := make([]geom.Vec3, h.Count)
	off := headerSize
	for i := range points {
		points[i] = geom.Vec3{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
		}
		off += bytesPerPoint
	}
	return h, points, nil
}

// Assembler accumulates datagrams into complete clouds. A change of
// sequence number flushes the cloud under assembly; datagrams are assumed
// in-order within one sensor stream (UDP reordering across a sequence
// boundary drops the partial cloud, which the next full sweep replaces).
type Assembler struct {
	frameID string
	seq     uint32
	points  []geom.Vec3
	started bool
}

// NewAssembler creates an assembler labelling clouds with frameID.
func NewAssembler(frameID string) *Assembler {
	return &Assembler{frameID: frameID}
}

// Add ingests one datagram. When the datagram opens a new sequence, the
// previously assembled cloud is returned complete.
func (a *Assembler) Add(h Header, points []geom.Vec3, stamp time.Time) (cloud.Cloud, bool) {
	var done cloud.Cloud
	var ok bool

	if a.started && h.Sequence != a.seq {
		done = cloud.Cloud{FrameID: a.frameID, Stamp: stamp, Points: a.points}
		ok = len(a.points) > 0
		a.points = nil
	}

	a.seq = h.Sequence
	a.started = true
	a.points = append(a.points, points...)
	return done, ok
}
