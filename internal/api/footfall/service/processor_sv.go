package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/internal/entity"
	contextPkg "FootfallGolang/pkg/context"
	"FootfallGolang/pkg/counter"
	"FootfallGolang/pkg/tracker"
	"FootfallGolang/pkg/video"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type progressFunc func(processed int, total int)

type frameHook func(frameNumber int, counts counter.Counts)

type runConfig struct {
	source      string
	counting    entity.CountingConfig
	maxDuration time.Duration
	outputPath  string
	progress    progressFunc
	onFrame     frameHook
}

type runResult struct {
	Counts      counter.Counts
	TotalFrames int
	Duration    float64
	FPS         float64
}

// runCounting drives one counting run from probe to exhaustion. The tracker
// stream and the annotation sink are released on every exit path; a cancelled
// context stops the loop between frames.
func (s *footfallService) runCounting(ctx context.Context, cfg runConfig) (runResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := cfg.counting.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid counting configuration")
		return runResult{}, err
	}

	info, err := s.tracker.Probe(cfg.source)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"source":     cfg.source,
			"error":      err.Error(),
		}).Warn("Failed to probe video source")
		return runResult{}, mapTrackerError(err)
	}

	if info.FrameCountKnown && info.FrameCount == 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"source":     cfg.source,
		}).Warn("Video source has no frames")
		return runResult{}, footfall.ErrEmptySource
	}

	stream, err := s.tracker.OpenStream(tracker.StreamRequest{
		Source:     cfg.source,
		Classes:    []int{personClass},
		Confidence: cfg.counting.ConfidenceThreshold,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"source":     cfg.source,
			"error":      err.Error(),
		}).Error("Failed to open tracking stream")
		return runResult{}, mapTrackerError(err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to close tracking stream")
		}
	}()

	var sink video.ISink
	if cfg.outputPath != "" {
		sink, err = video.NewAnnotationWriter(cfg.outputPath)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"output_path": cfg.outputPath,
				"error":       err.Error(),
			}).Error("Failed to open annotation output")
			return runResult{}, fmt.Errorf("%w: %s", footfall.ErrOutputWrite, err.Error())
		}
		defer func() {
			if err := sink.Close(); err != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"error":      err.Error(),
				}).Warn("Failed to close annotation output")
			}
		}()
	}

	engine := counter.New(cfg.counting.Line, cfg.counting.DebounceFrames)

	start := time.Now()
	frames := 0

	for {
		select {
		case <-ctx.Done():
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"frames":     frames,
			}).Info("Counting run cancelled")
			return runResult{}, footfall.ErrCancelled
		default:
		}

		if cfg.maxDuration > 0 && time.Since(start) >= cfg.maxDuration {
			break
		}

		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"frames":     frames,
				"error":      err.Error(),
			}).Error("Tracking stream failed mid-run")
			return runResult{}, mapTrackerError(err)
		}

		accepted := engine.Observe(frame.Index, frame.Observations)
		frames++

		if sink != nil {
			record := video.OverlayRecord{
				FrameNumber: frame.Index,
				Line:        cfg.counting.Line,
				Markers:     makeMarkers(accepted, frame.Observations),
				Counts:      engine.SnapshotCounts(),
			}
			if err := sink.WriteFrame(record); err != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"frame":      frame.Index,
					"error":      err.Error(),
				}).Error("Failed to write annotation record")
				return runResult{}, fmt.Errorf("%w: %s", footfall.ErrOutputWrite, err.Error())
			}
		}

		if cfg.progress != nil && info.FrameCountKnown {
			cfg.progress(frames, info.FrameCount)
		}

		if cfg.onFrame != nil {
			cfg.onFrame(frames, engine.SnapshotCounts())
		}
	}

	duration := time.Since(start).Seconds()
	fps := 0.0
	if duration > 0 {
		fps = float64(frames) / duration
	}

	return runResult{
		Counts:      engine.SnapshotCounts(),
		TotalFrames: frames,
		Duration:    duration,
		FPS:         fps,
	}, nil
}

func makeMarkers(events []counter.CrossingEvent, observations []counter.TrackObservation) []video.Marker {
	if len(events) == 0 {
		return nil
	}

	centers := make(map[int64]counter.Point, len(observations))
	for _, obs := range observations {
		centers[obs.TrackID] = obs.Center
	}

	markers := make([]video.Marker, 0, len(events))
	for _, event := range events {
		center := centers[event.TrackID]
		markers = append(markers, video.Marker{
			Text: strings.ToUpper(string(event.Direction)),
			X:    center.X,
			Y:    center.Y,
		})
	}

	return markers
}

func mapTrackerError(err error) error {
	switch {
	case errors.Is(err, tracker.ErrSourceNotFound):
		return footfall.ErrSourceNotFound
	case errors.Is(err, tracker.ErrSourceUnopenable):
		return footfall.ErrSourceUnopenable
	}

	var detectorErr *tracker.DetectorError
	if errors.As(err, &detectorErr) {
		return fmt.Errorf("%w: %s", footfall.ErrDetectorFailure, detectorErr.Message)
	}

	return err
}
