/*
Example program replaying recorded detections through lanewatch Sessions.
Each stream in the detection file is processed in parallel by a Session from
the pool, violation events are logged, written as JSON lines, stored in
sqlite and summarised in a JSON report.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/config"
	"github.com/swdee/go-lanewatch/logger"
	"github.com/swdee/go-lanewatch/postprocess"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/report"
	"github.com/swdee/go-lanewatch/source"
)

// eventLogger logs each violation as it is confirmed
type eventLogger struct {
	log zerolog.Logger
}

func (e eventLogger) OnFrameResult(res *lanewatch.FrameResult) {
	for _, ev := range res.Events {
		e.log.Warn().Str("stream", res.StreamID).Int("frame", ev.Frame).
			Int("track", ev.TrackID).Stringer("class", ev.Class).
			Str("region", ev.RegionID).Float64("score", ev.Score).
			Msg("Violation")
	}
}

func main() {
	// read in cli flags
	cfgFile := flag.String("c", "", "Config file, defaults to ./lanewatch.yaml if present")
	srcFile := flag.String("s", "", "JSON lines detection file, overrides config")
	regionsFile := flag.String("r", "", "Region file defining zones or lane, overrides config")
	labelFile := flag.String("l", "", "Text file containing model labels, needed for raw detections")
	eventsFile := flag.String("e", "", "Write violation events to this JSON lines file")

	flag.Parse()

	cfg, err := config.Load(*cfgFile)

	if err != nil {
		bootLog := logger.New("development", "info")
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	if *srcFile != "" {
		cfg.Source = *srcFile
	}

	if *regionsFile != "" {
		cfg.RegionsFile = *regionsFile
	}

	if *labelFile != "" {
		cfg.LabelsFile = *labelFile
	}

	regions, err := region.LoadFile(cfg.RegionsFile)

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load regions")
	}

	if cfg.FrameWidth > 0 {
		regions, err = regions.RescaleTo(cfg.FrameWidth, cfg.FrameHeight)

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to rescale regions")
		}
	}

	var classes postprocess.ClassMap

	if cfg.LabelsFile != "" {
		classes, err = lanewatch.LoadClassMap(cfg.LabelsFile)

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load labels")
		}
	}

	frames, err := source.LoadFile(cfg.Source)

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load detections")
	}

	names, byStream := source.Streams(frames)

	log.Info().Str("source", cfg.Source).Int("frames", len(frames)).
		Int("streams", len(names)).Str("mode", regions.Mode().String()).
		Msg("Loaded detections")

	// fan results out to every consumer
	bus := report.NewEventBus()
	defer bus.Close()

	collector := report.NewCollector()
	bus.Subscribe(collector)
	bus.Subscribe(eventLogger{log: log})

	if cfg.DBPath != "" {
		store, err := report.OpenStore(cfg.DBPath, cfg.Source, log)

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open report store")
		}

		defer store.Close()
		bus.Subscribe(store)
	}

	if *eventsFile != "" {
		fh, err := os.Create(*eventsFile)

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create events file")
		}

		defer fh.Close()

		events := report.NewEventLog(fh, log)
		defer events.Flush()

		bus.Subscribe(events)
	}

	pool, err := lanewatch.NewPool(cfg.Workers, cfg.Params, regions,
		lanewatch.WithLogger(log), lanewatch.WithSink(bus))

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session pool")
	}

	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	err = lanewatch.RunStreams(ctx, pool, len(names),
		func(ctx context.Context, stream int, s *lanewatch.Session) error {

			name := names[stream]
			if name != "" {
				s.SetID(name)
			}

			resolver := cfg.Resolver(classes)

			for _, f := range byStream[name] {
				if err := ctx.Err(); err != nil {
					return err
				}

				if _, err := s.Process(f.Frame, resolver.Resolve(f)); err != nil {
					return err
				}
			}

			return nil
		})

	if err != nil {
		log.Error().Err(err).Msg("Processing stopped")
	}

	summary := collector.Summary()

	log.Info().Int("frames", summary.FramesProcessed).
		Int("violations", summary.TotalViolations).
		Int("vehicles", summary.UniqueVehicles).
		Dur("elapsed", time.Since(start)).
		Msg("Processing complete")

	if cfg.ReportPath != "" {
		if err := collector.WriteJSON(cfg.ReportPath); err != nil {
			log.Error().Err(err).Msg("Failed to write report")
		} else {
			log.Info().Str("path", cfg.ReportPath).Msg("Report written")
		}
	}
}
