package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/internal/entity"
	contextPkg "FootfallGolang/pkg/context"
	"FootfallGolang/pkg/counter"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// liveUpdateInterval is how many processed frames pass between two update
// messages on a live session.
const liveUpdateInterval = 30

// UpdateSink receives the messages a live session emits. Implementations must
// be safe for use from the session goroutine; send failures are logged and
// never stop the run.
type UpdateSink interface {
	SendUpdate(msg footfall.LiveUpdateMessage) error
	SendCompleted(msg footfall.LiveCompletedMessage) error
	SendError(msg footfall.LiveErrorMessage) error
}

type liveSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLiveSession opens a counting session for the client key. An existing
// session for the same key is cancelled and fully wound down, source
// released, before the replacement starts.
func (s *footfallService) StartLiveSession(clientKey string, req footfall.StartLiveSessionRequest, sink UpdateSink) error {
	cfg := makeCountingConfig(req.ROILine, req.ConfidenceThreshold, req.DebounceFrames)
	if err := cfg.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"client_key": clientKey,
			"error":      err.Error(),
		}).Warn("Rejected live session with invalid counting configuration")
		return err
	}

	ctx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), clientKey))
	session := &liveSession{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// The slot is claimed under the lock, so concurrent starts for the same
	// key take turns winding down whatever session they find there.
	for {
		s.liveMu.Lock()
		old := s.liveSessions[clientKey]
		if old == nil {
			s.liveSessions[clientKey] = session
			s.liveMu.Unlock()
			break
		}
		s.liveMu.Unlock()

		old.cancel()
		<-old.done
	}

	s.log.WithFields(logrus.Fields{
		"client_key": clientKey,
		"stream_url": req.StreamURL,
	}).Info("Live session started")

	go s.runLiveSession(ctx, clientKey, session, req, cfg, sink)

	return nil
}

// StopLiveSession cancels the session for the key, if any, and waits for its
// loop to finish so the source is released before returning.
func (s *footfallService) StopLiveSession(clientKey string) {
	s.liveMu.Lock()
	session := s.liveSessions[clientKey]
	s.liveMu.Unlock()

	if session == nil {
		return
	}

	session.cancel()
	<-session.done

	s.log.WithFields(logrus.Fields{
		"client_key": clientKey,
	}).Info("Live session stopped")
}

func (s *footfallService) runLiveSession(
	ctx context.Context,
	clientKey string,
	session *liveSession,
	req footfall.StartLiveSessionRequest,
	cfg entity.CountingConfig,
	sink UpdateSink,
) {
	defer close(session.done)
	defer func() {
		s.liveMu.Lock()
		if s.liveSessions[clientKey] == session {
			delete(s.liveSessions, clientKey)
		}
		s.liveMu.Unlock()
	}()

	result, err := s.runCounting(ctx, runConfig{
		source:      req.StreamURL,
		counting:    cfg,
		maxDuration: time.Duration(req.MaxDurationSeconds) * time.Second,
		onFrame: func(frameNumber int, counts counter.Counts) {
			if frameNumber%liveUpdateInterval != 0 {
				return
			}
			s.sendLiveUpdate(clientKey, sink, frameNumber, counts)
		},
	})

	if err != nil {
		if errors.Is(err, footfall.ErrCancelled) {
			// Replaced or disconnected; nothing to tell the client.
			return
		}

		s.log.WithFields(logrus.Fields{
			"client_key": clientKey,
			"error":      err.Error(),
		}).Error("Live session failed")

		if sendErr := sink.SendError(footfall.LiveErrorMessage{
			Type:    "error",
			Message: err.Error(),
		}); sendErr != nil {
			s.log.WithFields(logrus.Fields{
				"client_key": clientKey,
				"error":      sendErr.Error(),
			}).Warn("Failed to deliver live error message")
		}
		return
	}

	if sendErr := sink.SendCompleted(footfall.LiveCompletedMessage{
		Type:        "completed",
		FinalCounts: result.Counts,
		TotalFrames: result.TotalFrames,
	}); sendErr != nil {
		s.log.WithFields(logrus.Fields{
			"client_key": clientKey,
			"error":      sendErr.Error(),
		}).Warn("Failed to deliver live completed message")
	}

	s.log.WithFields(logrus.Fields{
		"client_key": clientKey,
		"entries":    result.Counts.Entries,
		"exits":      result.Counts.Exits,
		"frames":     result.TotalFrames,
	}).Info("Live session completed")
}

func (s *footfallService) sendLiveUpdate(clientKey string, sink UpdateSink, frameNumber int, counts counter.Counts) {
	if err := sink.SendUpdate(footfall.LiveUpdateMessage{
		Type:       "update",
		FrameCount: frameNumber,
		EntryCount: counts.Entries,
		ExitCount:  counts.Exits,
		TotalCount: counts.Total,
	}); err != nil {
		s.log.WithFields(logrus.Fields{
			"client_key": clientKey,
			"error":      err.Error(),
		}).Warn("Failed to deliver live update message")
	}
}
