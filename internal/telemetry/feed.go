package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/targetfusion/internal/frames"
	"github.com/banshee-data/targetfusion/internal/geom"
	"github.com/banshee-data/targetfusion/internal/monitoring"
)

// Pose is one platform pose sample in the global frame.
type Pose struct {
	Stamp    time.Time
	Position geom.Vec3
}

// ParsePoseLine parses a telemetry line of the form
// "POSE,<unix_nanos>,<x>,<y>,<z>". Any other line is an error; the feed
// counts and skips them.
func ParsePoseLine(line string) (Pose, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != 5 || segments[0] != "POSE" {
		return Pose{}, fmt.Errorf("invalid pose line %q", line)
	}

	nanos, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil {
		return Pose{}, fmt.Errorf("parse timestamp: %w", err)
	}

	var coords [3]float64
	for i, seg := range segments[2:] {
		v, err := strconv.ParseFloat(seg, 64)
		if err != nil {
			return Pose{}, fmt.Errorf("parse coordinate %d: %w", i, err)
		}
		coords[i] = v
	}

	return Pose{
		Stamp:    time.Unix(0, nanos),
		Position: geom.Vec3{X: coords[0], Y: coords[1], Z: coords[2]},
	}, nil
}

// Feed consumes pose lines from the telemetry link and keeps the
// global<-body transform current in the frame buffer.
type Feed struct {
	port        Porter
	buffer      *frames.StaticBuffer
	globalFrame string
	bodyFrame   string

	poses     uint64
	malformed uint64
}

// NewFeed creates a feed writing into buffer.
func NewFeed(port Porter, buffer *frames.StaticBuffer, globalFrame, bodyFrame string) *Feed {
	return &Feed{
		port:        port,
		buffer:      buffer,
		globalFrame: globalFrame,
		bodyFrame:   bodyFrame,
	}
}

// Monitor reads lines until the context is cancelled or the link fails.
// Each valid pose replaces the global<-body transform; malformed lines are
// counted and skipped.
func (f *Feed) Monitor(ctx context.Context) error {
	scanner := bufio.NewScanner(f.port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("telemetry read: %w", err)
					}
				default:
				}
				return nil
			}
			f.handleLine(line)
		}
	}
}

func (f *Feed) handleLine(line string) {
	pose, err := ParsePoseLine(line)
	if err != nil {
		f.malformed++
		if f.malformed == 1 || f.malformed%100 == 0 {
			monitoring.Logf("[telemetry] malformed line (%d total): %v", f.malformed, err)
		}
		return
	}

	f.poses++
	if err := f.buffer.Set(f.globalFrame, f.bodyFrame, geom.Translation(pose.Position)); err != nil {
		monitoring.Logf("[telemetry] pose rejected: %v", err)
	}
}

// Stats returns pose and malformed-line counters.
func (f *Feed) Stats() (poses, malformed uint64) {
	return f.poses, f.malformed
}
