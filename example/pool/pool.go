/*
Example program benchmarking a pool of lanewatch Sessions against synthetic
traffic.  Every stream has vehicles driving left to right across a bus lane
zone, one in four of them a bus.
*/
package main

import (
	"context"
	"flag"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/geometry"
	"github.com/swdee/go-lanewatch/logger"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/tracker"
)

// vehicleDetections returns the detections of a frame with n vehicles each in
// its own row, moving 8px per frame and wrapping at the frame edge
func vehicleDetections(frame, n int) []tracker.Detection {

	dets := make([]tracker.Detection, 0, n)

	for i := 0; i < n; i++ {
		class := tracker.Car
		if i%4 == 0 {
			class = tracker.Bus
		}

		x := float64((frame*8 + i*97) % 1800)
		y := float64(40 + i*60)

		dets = append(dets, tracker.NewDetection(class, 0.85,
			geometry.NewBox(x, y, x+80, y+40)))
	}

	return dets
}

func main() {
	// read in cli flags
	poolSize := flag.Int("s", 4, "Size of Session pool")
	streams := flag.Int("n", 16, "Number of synthetic streams")
	frames := flag.Int("f", 900, "Number of frames per stream")
	vehicles := flag.Int("c", 12, "Number of vehicles per frame")

	flag.Parse()

	log := logger.New("development", "info")

	zone, err := region.NewPolygonZone("bus-lane", "Bus Lane", geometry.Polygon{
		geometry.Pt(600, 0), geometry.Pt(1200, 0),
		geometry.Pt(1200, 1080), geometry.Pt(600, 1080),
	}, []tracker.VehicleClass{tracker.Bus})

	if err != nil {
		log.Fatal().Err(err).Msg("Error creating zone")
	}

	regions, err := region.NewZoneSet(zone)

	if err != nil {
		log.Fatal().Err(err).Msg("Error creating region set")
	}

	pool, err := lanewatch.NewPool(*poolSize, lanewatch.DefaultParams(), regions)

	if err != nil {
		log.Fatal().Err(err).Msg("Error creating Session pool")
	}

	var events atomic.Int64
	var wg sync.WaitGroup

	ctx := context.Background()
	start := time.Now()

	for i := 0; i < *streams; i++ {

		// pool.Get() blocks if no Sessions are available in the pool
		s, err := pool.Get(ctx)

		if err != nil {
			log.Fatal().Err(err).Msg("Error getting Session")
		}

		wg.Add(1)

		go func(s *lanewatch.Session) {
			defer wg.Done()
			defer pool.Return(s)

			for frame := 0; frame < *frames; frame++ {
				res, err := s.Process(frame, vehicleDetections(frame, *vehicles))

				if err != nil {
					log.Error().Err(err).Str("stream", s.ID()).Msg("Error processing frame")
					return
				}

				events.Add(int64(len(res.Events)))
			}
		}(s)
	}

	wg.Wait()
	pool.Close()

	elapsed := time.Since(start)
	total := *streams * *frames

	log.Info().Int("streams", *streams).Int("frames", total).
		Int64("violations", events.Load()).Dur("elapsed", elapsed).
		Float64("fps", float64(total)/elapsed.Seconds()).
		Msg("Completed")
}
