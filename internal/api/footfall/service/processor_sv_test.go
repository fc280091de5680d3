package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/pkg/counter"
	"FootfallGolang/pkg/tracker"
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestRunCounting_CountsCrossings(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 2, FrameCountKnown: true, FPS: 30},
		frames:    crossingFrames(),
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	result, err := svc.runCounting(context.Background(), runConfig{
		source:   "video.mp4",
		counting: testCountingConfig(0),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Counts.Entries)
	assert.Equal(t, 1, result.Counts.Exits)
	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, 2, result.TotalFrames)
	assert.True(t, tr.lastStream().isClosed())
}

func TestRunCounting_InvalidConfiguration(t *testing.T) {
	tr := &fakeTracker{}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	cfg := testCountingConfig(0)
	cfg.Line = counter.Line{X1: 10, Y1: 10, X2: 10, Y2: 10}

	_, err := svc.runCounting(context.Background(), runConfig{source: "video.mp4", counting: cfg})
	require.ErrorIs(t, err, footfall.ErrInvalidROI)

	cfg = testCountingConfig(0)
	cfg.ConfidenceThreshold = 1.5

	_, err = svc.runCounting(context.Background(), runConfig{source: "video.mp4", counting: cfg})
	require.ErrorIs(t, err, footfall.ErrInvalidConfidence)

	assert.Empty(t, tr.eventLog(), "no stream should be opened for invalid configuration")
}

func TestRunCounting_EmptySource(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 0, FrameCountKnown: true},
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	_, err := svc.runCounting(context.Background(), runConfig{
		source:   "empty.mp4",
		counting: testCountingConfig(0),
	})

	require.ErrorIs(t, err, footfall.ErrEmptySource)
	assert.Empty(t, tr.eventLog(), "empty source must not open a stream")
}

func TestRunCounting_SourceErrors(t *testing.T) {
	cases := []struct {
		name     string
		probeErr error
		want     error
	}{
		{"not found", tracker.ErrSourceNotFound, footfall.ErrSourceNotFound},
		{"unopenable", tracker.ErrSourceUnopenable, footfall.ErrSourceUnopenable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTracker{probeErr: tc.probeErr}
			svc := newTestService(t, tr, newFakeJobStore(), nil)

			_, err := svc.runCounting(context.Background(), runConfig{
				source:   "video.mp4",
				counting: testCountingConfig(0),
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRunCounting_ReleasesSourceOnDetectorFailure(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 10, FrameCountKnown: true},
		frames:    crossingFrames(),
		streamErr: &tracker.DetectorError{Message: "model crashed"},
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	_, err := svc.runCounting(context.Background(), runConfig{
		source:   "video.mp4",
		counting: testCountingConfig(0),
	})

	require.ErrorIs(t, err, footfall.ErrDetectorFailure)
	assert.Contains(t, err.Error(), "model crashed")
	assert.True(t, tr.lastStream().isClosed(), "stream must be released on failure")
}

func TestRunCounting_CancelledBeforeFirstFrame(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCountKnown: false},
		infinite:  true,
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.runCounting(ctx, runConfig{
		source:   "rtsp://cam/stream",
		counting: testCountingConfig(0),
	})

	require.ErrorIs(t, err, footfall.ErrCancelled)
	assert.True(t, tr.lastStream().isClosed(), "stream must be released on cancel")
}

func TestRunCounting_OutputWriteFailure(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 2, FrameCountKnown: true},
		frames:    crossingFrames(),
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	_, err := svc.runCounting(context.Background(), runConfig{
		source:     "video.mp4",
		counting:   testCountingConfig(0),
		outputPath: filepath.Join(t.TempDir(), "missing", "out.jsonl"),
	})

	require.ErrorIs(t, err, footfall.ErrOutputWrite)
	assert.True(t, tr.lastStream().isClosed(), "stream must be released on output failure")
}

func TestRunCounting_WritesAnnotationRecords(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 2, FrameCountKnown: true},
		frames:    crossingFrames(),
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	outputPath := filepath.Join(t.TempDir(), "out.jsonl")
	result, err := svc.runCounting(context.Background(), runConfig{
		source:     "video.mp4",
		counting:   testCountingConfig(0),
		outputPath: outputPath,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalFrames)

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines, "one overlay record per processed frame")
}

func TestRunCounting_ProgressPerFrame(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCount: 2, FrameCountKnown: true},
		frames:    crossingFrames(),
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	type tick struct{ processed, total int }
	var ticks []tick

	_, err := svc.runCounting(context.Background(), runConfig{
		source:   "video.mp4",
		counting: testCountingConfig(0),
		progress: func(processed, total int) {
			ticks = append(ticks, tick{processed, total})
		},
	})

	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, tick{1, 2}, ticks[0])
	assert.Equal(t, tick{2, 2}, ticks[1])
}

func TestRunCounting_NoProgressForUnknownLength(t *testing.T) {
	tr := &fakeTracker{
		probeInfo: tracker.SourceInfo{FrameCountKnown: false},
		frames:    crossingFrames(),
	}
	svc := newTestService(t, tr, newFakeJobStore(), nil)

	calls := 0
	_, err := svc.runCounting(context.Background(), runConfig{
		source:   "rtsp://cam/stream",
		counting: testCountingConfig(0),
		progress: func(int, int) { calls++ },
	})

	require.NoError(t, err)
	assert.Zero(t, calls, "progress needs a known frame count")
}
