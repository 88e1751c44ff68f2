/*
Example program streaming a video over HTTP with lanewatch tracks, trails,
regions and violations drawn on each frame.  Detections are replayed from a
JSON lines file recorded for the same video, matched by frame number.

The annotated video is served as MJPEG at /stream and violation events are
pushed as JSON to websocket clients at /events.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hybridgroup/mjpeg"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/logger"
	"github.com/swdee/go-lanewatch/postprocess"
	"github.com/swdee/go-lanewatch/region"
	"github.com/swdee/go-lanewatch/render"
	"github.com/swdee/go-lanewatch/report"
	"github.com/swdee/go-lanewatch/source"
	"github.com/swdee/go-lanewatch/tracker"
)

var (
	// FPS is the number of FPS to simulate
	FPS         = 30
	FPSinterval = time.Duration(float64(time.Second) / float64(FPS))
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Demo defines the struct for running the violation streaming demo
type Demo struct {
	// vidBuffer buffers the video frames into memory
	vidBuffer []gocv.Mat
	// detections are the recorded detections keyed by frame number
	detections map[int][]tracker.Detection
	// regions are the zones or lane evaluated, scaled to the video size
	regions *region.Set
	// session tracks the vehicles of the video
	session *lanewatch.Session
	// bus fans frame results out to websocket clients
	bus    *report.EventBus
	stream *mjpeg.Stream
	log    zerolog.Logger
}

// NewDemo returns an instance of Demo, a streaming HTTP server showing
// video with violation detection
func NewDemo(vidFile, detFile, regionsFile, labelFile string,
	log zerolog.Logger) (*Demo, error) {

	d := &Demo{
		bus:    report.NewEventBus(),
		stream: mjpeg.NewStream(),
		log:    log,
	}

	err := d.bufferVideo(vidFile)

	if err != nil {
		return nil, fmt.Errorf("error buffering video: %w", err)
	}

	if len(d.vidBuffer) == 0 {
		return nil, fmt.Errorf("video %s has no frames", vidFile)
	}

	var classes postprocess.ClassMap

	if labelFile != "" {
		classes, err = lanewatch.LoadClassMap(labelFile)

		if err != nil {
			return nil, fmt.Errorf("error loading model labels: %w", err)
		}
	}

	frames, err := source.LoadFile(detFile)

	if err != nil {
		return nil, err
	}

	d.detections = make(map[int][]tracker.Detection, len(frames))
	resolver := source.NewResolver(classes)

	for _, f := range frames {
		d.detections[f.Frame] = resolver.Resolve(f)
	}

	regions, err := region.LoadFile(regionsFile)

	if err != nil {
		return nil, fmt.Errorf("error loading regions: %w", err)
	}

	// scale regions drawn on a different canvas to the video frame size
	d.regions, err = regions.RescaleTo(d.vidBuffer[0].Cols(), d.vidBuffer[0].Rows())

	if err != nil {
		return nil, fmt.Errorf("error scaling regions: %w", err)
	}

	d.session, err = lanewatch.NewSession(lanewatch.DefaultParams(), d.regions,
		lanewatch.WithLogger(log), lanewatch.WithSink(d.bus),
		lanewatch.WithStreamID(vidFile))

	if err != nil {
		return nil, err
	}

	log.Info().Int("frames", len(d.vidBuffer)).Int("detectionFrames", len(frames)).
		Str("mode", d.regions.Mode().String()).Msg("Demo ready")

	return d, nil
}

// bufferVideo reads in the video frames and saves them to a buffer
func (d *Demo) bufferVideo(vidFile string) error {

	// open handle to read frames of video file
	video, err := gocv.VideoCaptureFile(vidFile)

	if err != nil {
		return err
	}

	defer video.Close()

	d.vidBuffer = make([]gocv.Mat, 0)

	for {
		img := gocv.NewMat()

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			img.Close()
			break
		}

		if img.Empty() {
			img.Close()
			continue
		}

		d.vidBuffer = append(d.vidBuffer, img)
	}

	return nil
}

// Run plays the video in a loop at the simulated frame rate until the
// context is cancelled, publishing each annotated frame to the MJPEG stream
func (d *Demo) Run(ctx context.Context) {

	annotator := render.NewAnnotator()

	// pointer to position in video buffer
	frameNum := -1

	resImg := gocv.NewMat()
	defer resImg.Close()

	ticker := time.NewTicker(FPSinterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int("violations", annotator.Violations()).Msg("Stopped")
			return

		// simulate reading 30FPS web camera
		case <-ticker.C:

			frameNum++

			if frameNum > len(d.vidBuffer)-1 {
				// last frame reached so loop back to start of video
				frameNum = 0
				d.session.Reset()
			}

			res, err := d.session.Process(frameNum, d.detections[frameNum])

			if err != nil {
				d.log.Error().Err(err).Int("frame", frameNum).Msg("Error processing frame")
				continue
			}

			// copy the source image and annotate the copy
			d.vidBuffer[frameNum].CopyTo(&resImg)

			if err := annotator.Draw(&resImg, res, d.session.Regions()); err != nil {
				d.log.Error().Err(err).Msg("Error annotating frame")
			}

			buf, err := gocv.IMEncode(".jpg", resImg)

			if err != nil {
				d.log.Error().Err(err).Msg("Error encoding frame")
				continue
			}

			d.stream.UpdateJPEG(buf.GetBytes())
			buf.Close()
		}
	}
}

// Events is the HTTP handler upgrading clients to a websocket that receives
// every violation event as JSON
func (d *Demo) Events(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		d.log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	defer conn.Close()

	log := d.log.With().Str("client", r.RemoteAddr).Logger()
	log.Info().Msg("Events client connected")

	results, unsubscribe := d.bus.SubscribeChannel(FPS)
	defer unsubscribe()

	// read loop detects the client going away
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Info().Msg("Events client disconnected")
			return

		case res, ok := <-results:
			if !ok {
				return
			}

			for _, ev := range res.Events {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

				if err := conn.WriteJSON(ev); err != nil {
					log.Warn().Err(err).Msg("Error writing event")
					return
				}
			}
		}
	}
}

func main() {
	// read in cli flags
	vidFile := flag.String("v", "../data/traffic.mp4", "Video file to stream")
	detFile := flag.String("d", "../data/traffic.jsonl", "JSON lines detections recorded for the video")
	regionsFile := flag.String("r", "../data/zones.json", "Region file defining zones or lane")
	labelFile := flag.String("l", "", "Text file containing model labels, needed for raw detections")
	httpAddr := flag.String("a", "localhost:8080", "HTTP Address to run server on, format address:port")

	flag.Parse()

	log := logger.New("development", "info")

	demo, err := NewDemo(*vidFile, *detFile, *regionsFile, *labelFile, log)

	if err != nil {
		log.Fatal().Err(err).Msg("Error creating demo")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go demo.Run(ctx)

	http.Handle("/stream", demo.stream)
	http.HandleFunc("/events", demo.Events)

	log.Info().Msgf("Open browser and view video at http://%s/stream", *httpAddr)

	server := &http.Server{Addr: *httpAddr}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
