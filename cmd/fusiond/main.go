// Command fusiond runs the target-fusion service: it ingests point-cloud
// datagrams over UDP, receives detection bundles and camera calibration
// over HTTP, tracks the platform pose from the telemetry link, and serves
// the fusion monitor.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/config"
	"github.com/banshee-data/targetfusion/internal/frames"
	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/fusiondb"
	"github.com/banshee-data/targetfusion/internal/groundtruth"
	"github.com/banshee-data/targetfusion/internal/ingest"
	"github.com/banshee-data/targetfusion/internal/monitor"
	"github.com/banshee-data/targetfusion/internal/telemetry"
	"github.com/banshee-data/targetfusion/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "HTTP listen address for the monitor")
	cloudListen   = flag.String("cloud-listen", ":7500", "UDP listen address for point-cloud datagrams")
	cloudFrame    = flag.String("cloud-frame", "depth_camera", "frame id of the incoming point clouds")
	dbFile        = flag.String("db", "fusion_data.db", "Path to the SQLite database file (empty disables persistence)")
	configFile    = flag.String("config", "", "Path to a JSON tuning config (optional)")
	telemetryPort = flag.String("telemetry-port", "", "Serial port of the flight-controller bridge (empty uses the mock feed)")
	mqttBroker    = flag.String("mqtt-broker", "", "MQTT broker URL for ground truth (empty disables the feed)")
	rcvBuf        = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	logInterval   = flag.Int("log-interval", 30, "Ingest statistics logging interval in seconds")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	log.Printf("fusiond %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning := config.EmptyTuningConfig()
	if *configFile != "" {
		loaded, err := config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		tuning = loaded
		log.Printf("Loaded tuning config from %s", *configFile)
	}
	fusionCfg := tuning.FusionConfig()

	// Frame buffer fed by telemetry, read by the engine.
	tfBuffer := frames.NewStaticBuffer()

	// Persistence is optional; the engine runs fine without a recorder.
	var recorder fusion.Recorder
	var store *fusiondb.Store
	if *dbFile != "" {
		db, err := fusiondb.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open fusion database: %v", err)
		}
		defer db.Close()

		store, err = fusiondb.NewStore(db, fusionCfg)
		if err != nil {
			log.Fatalf("Failed to start fusion run: %v", err)
		}
		recorder = store
		log.Printf("Recording run %s to %s", store.RunID(), *dbFile)
	} else {
		log.Println("Persistence disabled (no -db path)")
	}

	// The monitor is both the HTTP surface and an output port.
	webServer := monitor.NewWebServer(monitor.WebServerConfig{
		Address:     *listen,
		Store:       store,
		EvalHistory: tuning.GetEvalHistory(),
	})
	engine := fusion.NewEngine(fusionCfg, tfBuffer, fusion.Outputs{webServer}, recorder)
	webServer.SetEngine(engine)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Point-cloud UDP listener.
	listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
		Address:     *cloudListen,
		RcvBuf:      *rcvBuf,
		FrameID:     *cloudFrame,
		LogInterval: time.Duration(*logInterval) * time.Second,
		Handler:     func(c cloud.Cloud) { engine.HandleCloud(c) },
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("UDP listener error: %v", err)
		}
		log.Print("UDP listener routine terminated")
	}()

	// Telemetry pose feed. Without hardware, a mock port replays a fixed
	// pose so transform lookups resolve in dev.
	port, err := openTelemetryPort(*telemetryPort)
	if err != nil {
		log.Fatalf("Failed to open telemetry port: %v", err)
	}
	defer port.Close()

	feed := telemetry.NewFeed(port, tfBuffer, fusionCfg.GlobalFrame, fusionCfg.BodyFrame)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feed.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("Telemetry feed error: %v", err)
		}
		log.Print("Telemetry routine terminated")
	}()

	// Optional ground-truth subscription.
	if *mqttBroker != "" {
		sub := groundtruth.NewSubscriber(
			groundtruth.Config{Broker: *mqttBroker},
			engine.HandleGroundTruth,
		)
		if err := sub.Connect(); err != nil {
			log.Printf("Ground truth unavailable: %v", err)
		} else {
			defer sub.Close()
		}
	}

	// HTTP monitor.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			log.Printf("Web server error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// openTelemetryPort opens the serial bridge, or a mock feed that holds the
// platform at the global origin when no port is configured.
func openTelemetryPort(path string) (telemetry.Porter, error) {
	if path == "" {
		log.Println("No telemetry port configured; using mock pose feed at origin")
		line := []byte("POSE,0,0.0,0.0,0.0\n")
		return telemetry.NewMockPort(line, 200*time.Millisecond), nil
	}
	return telemetry.OpenPort(path, telemetry.DefaultPortMode())
}
