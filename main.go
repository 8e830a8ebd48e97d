// Command rbnvfd ingests the Reverse Beacon Network telnet feed, aggregates
// spots into a time-decaying view and drives a 2x20 vacuum-fluorescent
// display. This file is the glue loop: it drains feed events into the store,
// purges on a fixed cadence and ticks the display scheduler.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rbnvfd/buffer"
	"rbnvfd/config"
	"rbnvfd/display"
	"rbnvfd/metrics"
	"rbnvfd/radio"
	"rbnvfd/rbn"
	"rbnvfd/stats"
	"rbnvfd/store"
)

const (
	tickInterval     = 100 * time.Millisecond
	purgeInterval    = 5 * time.Second
	statsInterval    = 60 * time.Second
	rawLineRingLines = 500
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
	}
	defer fanout.Close()
	log.SetFlags(0)
	log.SetOutput(fanout)

	cfg.Print()

	m, registry := metrics.New()
	if cfg.Admin.HTTPPort != 0 {
		metrics.Serve(cfg.Admin.HTTPPort, cfg.Admin.BindAddress, registry, func(err error) {
			log.Printf("admin: metrics listener failed: %v", err)
		})
	}

	spots := store.New(cfg.Filters.MinSNR, cfg.MaxAge())
	ring := buffer.NewLineRing(rawLineRingLines)
	tracker := stats.NewTracker()

	scheduler := display.NewScheduler(nil)
	scheduler.SetScrollInterval(cfg.ScrollInterval())
	scheduler.SetDutyCyclePercent(cfg.Display.IdleDutyPercent)
	scheduler.SetForceIdle(cfg.Display.ForceIdle)
	scheduler.SetStatusFunc(func(text string) {
		log.Printf("display: %s", text)
	})

	var device *os.File
	if cfg.Display.Device != "" {
		device, err = os.OpenFile(cfg.Display.Device, os.O_WRONLY, 0)
		if err != nil {
			log.Printf("display: cannot open %s: %v", cfg.Display.Device, err)
		} else {
			defer device.Close()
			scheduler.SetSink(&countingSink{
				inner:   display.NewWriterSink(device),
				tracker: tracker,
				metrics: m,
			})
			log.Printf("display: opened %s", cfg.Display.Device)
		}
	}

	rig := radio.NewController(cfg.Radio)
	if cfg.Radio.Enabled {
		if err := rig.Connect(); err != nil {
			log.Printf("radio: %v", err)
		} else {
			log.Printf("radio: %s connected", rig.BackendName())
		}
		defer rig.Disconnect()
	}

	client := rbn.NewClient(cfg.RBN.Host, cfg.RBN.Port)
	client.Start()
	defer client.Stop()
	if cfg.RBN.Callsign != "" {
		client.Connect(cfg.RBN.Callsign)
	} else {
		log.Printf("rbn: no callsign configured, feed stays idle")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	purgeTicker := time.NewTicker(purgeInterval)
	defer purgeTicker.Stop()
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	lastDrops := uint64(0)
	for {
		select {
		case <-sigs:
			log.Printf("shutting down")
			client.Disconnect()
			return

		case <-ticker.C:
			drainEvents(client, spots, ring, tracker, m)
			now := time.Now()
			scheduler.Update(now, spots.Snapshot(now))
			m.ActiveSpots.Set(float64(spots.Count()))
			if client.State() == rbn.StateLoggedIn {
				m.Connected.Set(1)
			} else {
				m.Connected.Set(0)
			}

		case <-purgeTicker.C:
			removed := spots.Purge(time.Now())
			tracker.AddPurged(removed)
			m.SpotsPurged.Add(float64(removed))

		case <-statsTicker.C:
			drops := client.DroppedEvents()
			m.EventDrops.Add(float64(drops - lastDrops))
			lastDrops = drops
			log.Print(tracker.Summary(spots.Count(), drops))
		}
	}
}

// drainEvents empties whatever the client has queued without ever blocking
// the tick.
func drainEvents(client *rbn.Client, spots *store.Store, ring *buffer.LineRing, tracker *stats.Tracker, m *metrics.Metrics) {
	for {
		select {
		case ev := <-client.Events():
			handleEvent(ev, spots, ring, tracker, m)
		default:
			return
		}
	}
}

func handleEvent(ev rbn.Event, spots *store.Store, ring *buffer.LineRing, tracker *stats.Tracker, m *metrics.Metrics) {
	switch ev := ev.(type) {
	case rbn.StatusEvent:
		log.Printf("rbn: %s", ev.Text)
	case rbn.SpotEvent:
		tracker.IncrementSpots()
		m.SpotsParsed.Inc()
		if ev.Spot.SNR < spots.MinSNR() {
			tracker.IncrementSNRRejects()
			m.SNRRejects.Inc()
		}
		spots.Add(ev.Spot)
	case rbn.RawLineEvent:
		ring.Add(ev.Text, ev.Inbound)
		if ev.Inbound {
			tracker.IncrementLines()
			m.LinesReceived.Inc()
		}
	case rbn.DisconnectedEvent:
		log.Printf("rbn: disconnected")
	}
}

// countingSink wraps the real sink so write outcomes feed the tracker and the
// metrics without the scheduler knowing about either.
type countingSink struct {
	inner   display.Sink
	tracker *stats.Tracker
	metrics *metrics.Metrics
}

func (c *countingSink) WriteDisplay(line1, line2 string) error {
	if err := c.inner.WriteDisplay(line1, line2); err != nil {
		c.tracker.IncrementDisplayErrors()
		c.metrics.DisplayErrors.Inc()
		return err
	}
	c.tracker.IncrementDisplayWrites()
	c.metrics.DisplayWrites.Inc()
	return nil
}

func (c *countingSink) Clear() error {
	if err := c.inner.Clear(); err != nil {
		c.tracker.IncrementDisplayErrors()
		c.metrics.DisplayErrors.Inc()
		return err
	}
	c.tracker.IncrementDisplayWrites()
	c.metrics.DisplayWrites.Inc()
	return nil
}

var _ display.Sink = (*countingSink)(nil)
