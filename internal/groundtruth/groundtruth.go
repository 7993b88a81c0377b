// Package groundtruth subscribes to externally published target positions
// over MQTT so the fusion engine can report estimate error during trials.
package groundtruth

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/targetfusion/internal/geom"
	"github.com/banshee-data/targetfusion/internal/monitoring"
)

// Config describes the MQTT subscription.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// DefaultConfig returns the standard ground-truth subscription settings.
func DefaultConfig() Config {
	return Config{
		Topic:    "target/ground_truth",
		ClientID: "targetfusion",
	}
}

type message struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Z              float64 `json:"z"`
	FrameID        string  `json:"frame_id"`
	StampUnixNanos int64   `json:"stamp_unix_nanos"`
}

// ParseMessage decodes one ground-truth payload.
func ParseMessage(payload []byte) (geom.StampedPoint, error) {
	var m message
	if err := json.Unmarshal(payload, &m); err != nil {
		return geom.StampedPoint{}, fmt.Errorf("decode ground truth: %w", err)
	}
	pt := geom.StampedPoint{
		Point:   geom.Vec3{X: m.X, Y: m.Y, Z: m.Z},
		FrameID: m.FrameID,
		Stamp:   time.Unix(0, m.StampUnixNanos),
	}
	if !pt.Point.IsFinite() {
		return geom.StampedPoint{}, fmt.Errorf("non-finite ground truth position")
	}
	return pt, nil
}

// Handler receives each valid ground-truth point.
type Handler func(geom.StampedPoint)

// Subscriber maintains the broker connection and subscription.
type Subscriber struct {
	cfg     Config
	client  mqtt.Client
	handler Handler

	received  uint64
	malformed uint64
}

// NewSubscriber prepares a subscriber; Connect starts it.
func NewSubscriber(cfg Config, handler Handler) *Subscriber {
	if cfg.Topic == "" {
		cfg.Topic = DefaultConfig().Topic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultConfig().ClientID
	}
	return &Subscriber{cfg: cfg, handler: handler}
}

// Connect dials the broker and subscribes. The paho client reconnects and
// resubscribes on its own after transient broker loss.
func (s *Subscriber) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			monitoring.Logf("[groundtruth] connected to %s", s.cfg.Broker)
			if token := c.Subscribe(s.cfg.Topic, 0, s.onMessage); token.Wait() && token.Error() != nil {
				monitoring.Logf("[groundtruth] subscribe %s: %v", s.cfg.Topic, token.Error())
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			monitoring.Logf("[groundtruth] connection lost: %v", err)
		})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker %s: %w", s.cfg.Broker, token.Error())
	}
	return nil
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	pt, err := ParseMessage(msg.Payload())
	if err != nil {
		s.malformed++
		monitoring.Logf("[groundtruth] dropping message: %v", err)
		return
	}
	s.received++
	if s.handler != nil {
		s.handler(pt)
	}
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// Stats returns received and malformed message counters.
func (s *Subscriber) Stats() (received, malformed uint64) {
	return s.received, s.malformed
}
