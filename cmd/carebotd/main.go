// Command carebotd runs the bed repositioning daemon: the rotation
// engine, the caregiver REST and WebSocket API, and the optional MQTT
// and webhook bridges.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/internal/config"
	"github.com/carebot-oss/carebot/internal/logging"
	"github.com/carebot-oss/carebot/internal/storage"
	"github.com/carebot-oss/carebot/pkg/audit"
	"github.com/carebot-oss/carebot/pkg/bed"
	"github.com/carebot-oss/carebot/pkg/drive"
	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/motion"
	"github.com/carebot-oss/carebot/pkg/notify"
	"github.com/carebot-oss/carebot/pkg/safety"
	"github.com/carebot-oss/carebot/pkg/web"
)

// statusInterval is how often the daemon pushes a status snapshot to
// dashboard clients and the MQTT status topic.
const statusInterval = time.Second

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, "carebotd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("daemon exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.SimulationMode {
		return errors.New("hardware drivers are not present in this build; set SIMULATION_MODE=true")
	}

	rig := drive.NewSimRig()
	defer rig.Close()
	// An empty simulated mattress fails the presence check and refuses
	// every rotation, so seed an occupied one.
	rig.SetPressures([bed.PressureChannels]float64{250, 250, 150, 150})

	cal := bed.DefaultCalibration()
	if cfg.Engine.CalibrationFile != "" {
		loaded, err := bed.LoadCalibration(cfg.Engine.CalibrationFile)
		if err != nil {
			return fmt.Errorf("load calibration: %w", err)
		}
		cal = loaded
		log.Info("calibration loaded", zap.String("file", cfg.Engine.CalibrationFile))
	}

	monitor := safety.NewMonitor(rig, safety.Config{
		OverloadThresholdMA: cfg.Safety.OverloadThresholdMA,
		PresenceThreshold:   cfg.Safety.PresenceThreshold,
		ReleaseDebounce:     cfg.Safety.ReleaseDebounce,
	}, log.Named("safety"))

	recent := audit.NewMemoryLog(0)
	sinks := []audit.Sink{recent}

	if cfg.Storage.AuditDBPath != "" {
		store, err := storage.Open(cfg.Storage.AuditDBPath, log.Named("storage"))
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer store.Close()
		if n, err := store.Count(); err == nil {
			log.Info("audit store opened",
				zap.String("path", cfg.Storage.AuditDBPath),
				zap.Int64("records", n))
		}
		sinks = append(sinks, store)
	}

	// The server needs the engine, so it is constructed afterwards and
	// records reach the dashboard through this indirection. The
	// assignment below happens before the engine worker starts, so the
	// closure never sees a nil server.
	var server *web.Server
	sinks = append(sinks, audit.SinkFunc(func(rec audit.Record) {
		server.BroadcastAudit(rec)
	}))

	rotation := cfg.Engine.RotationInterval
	if rotation <= 0 {
		rotation = -1 // automatic rotation disabled
	}

	eng := engine.New(rig, monitor, motion.NewPlanner(cal), audit.MultiSink(sinks...), engine.Config{
		RotationInterval: rotation,
		StepCount:        cfg.Engine.StepCount,
		StepInterval:     cfg.Engine.StepInterval,
		TickInterval:     cfg.Engine.TickInterval,
		HomeOnStart:      cfg.Engine.HomeOnStart,
	}, log.Named("engine"))

	server = web.NewServer(web.Config{
		Addr:       cfg.HTTP.Addr,
		Simulation: cfg.SimulationMode,
	}, eng, cal, recent, log.Named("web"))

	var publisher *notify.MQTTPublisher
	if cfg.MQTT.Broker != "" {
		publisher = notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:    cfg.MQTT.Broker,
			ClientID:  cfg.MQTT.ClientID,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			BaseTopic: "carebot/" + cfg.DeviceID,
			QoS:       byte(cfg.MQTT.QoS),
		}, log.Named("mqtt"))
		if err := publisher.Connect(); err != nil {
			log.Warn("mqtt broker unreachable, events stay local", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Disconnect()
		}
	}

	handlers := []notify.EventHandler{server.BroadcastEvent}
	if publisher != nil {
		handlers = append(handlers, func(ev engine.Event) {
			if err := publisher.PublishEvent(ev); err != nil {
				log.Warn("mqtt event publish failed", zap.Error(err))
			}
		})
	}
	if cfg.Alert.WebhookURL != "" {
		alerter := notify.NewWebhookAlerter(notify.WebhookConfig{
			URL:      cfg.Alert.WebhookURL,
			DeviceID: cfg.DeviceID,
			MinLevel: engine.Level(cfg.Alert.MinLevel),
		}, log.Named("alerts"))
		handlers = append(handlers, func(ev engine.Event) {
			// Alert logs its own failures.
			_ = alerter.Alert(ev)
		})
	}

	sub := eng.Subscribe(64)
	defer eng.Unsubscribe(sub)
	go notify.NewDispatcher(log.Named("notify"), handlers...).Run(sub.Events())

	go eng.Run()
	defer eng.Stop()

	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := eng.Status()
				server.BroadcastStatus(st)
				if publisher != nil {
					if err := publisher.PublishStatus(st); err != nil && !errors.Is(err, notify.ErrNotConnected) {
						log.Warn("mqtt status publish failed", zap.Error(err))
					}
				}
			}
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	log.Info("carebot daemon ready",
		zap.String("device_id", cfg.DeviceID),
		zap.String("addr", cfg.HTTP.Addr),
		zap.Bool("simulation", cfg.SimulationMode),
		zap.Duration("rotation_interval", cfg.Engine.RotationInterval))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	if err := server.Shutdown(); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	eng.Stop()
	log.Info("carebot daemon stopped")
	return nil
}
