package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	footfallRepository "FootfallGolang/internal/api/footfall/repository"
	"FootfallGolang/internal/entity"
	"FootfallGolang/pkg/counter"
	"FootfallGolang/pkg/tracker"
	"FootfallGolang/pkg/utils"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// fakeJobStore implements footfallRepository.Repository and its Job client
// over an in-memory map, keeping the guarded state transitions of the real
// SQL queries.
type fakeJobStore struct {
	mu          sync.Mutex
	jobs        map[string]entity.ProcessingJob
	completeErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]entity.ProcessingJob)}
}

func (s *fakeJobStore) NewClient(tx bool) (footfallRepository.Client, error) {
	return footfallRepository.Client{
		Job:      s,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

func (s *fakeJobStore) CreateJob(_ context.Context, job entity.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) GetJobByID(_ context.Context, id string) (entity.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return entity.ProcessingJob{}, footfall.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeJobStore) GetJobs(_ context.Context) ([]entity.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]entity.ProcessingJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *fakeJobStore) MarkJobProcessing(_ context.Context, id string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != entity.JobStatusPending {
		return footfall.ErrJobStateConflict
	}
	job.Status = entity.JobStatusProcessing
	job.StartedAt = &startedAt
	s.jobs[id] = job
	return nil
}

func (s *fakeJobStore) CompleteJob(_ context.Context, updated entity.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	job, ok := s.jobs[updated.ID]
	if !ok || job.Status != entity.JobStatusProcessing {
		return footfall.ErrJobStateConflict
	}
	job.Status = entity.JobStatusCompleted
	job.EntryCount = updated.EntryCount
	job.ExitCount = updated.ExitCount
	job.TotalFramesProcessed = updated.TotalFramesProcessed
	job.ProcessingDuration = updated.ProcessingDuration
	job.FPS = updated.FPS
	job.OutputPath = updated.OutputPath
	job.CompletedAt = updated.CompletedAt
	s.jobs[updated.ID] = job
	return nil
}

func (s *fakeJobStore) FailJob(_ context.Context, id string, message string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return footfall.ErrJobStateConflict
	}
	job.Status = entity.JobStatusFailed
	job.ErrorMessage = message
	job.CompletedAt = &completedAt
	s.jobs[id] = job
	return nil
}

func (s *fakeJobStore) CancelJob(_ context.Context, id string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return footfall.ErrJobNotCancellable
	}
	job.Status = entity.JobStatusCancelled
	job.CompletedAt = &completedAt
	s.jobs[id] = job
	return nil
}

func (s *fakeJobStore) status(id string) entity.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id].Status
}

type fakeStream struct {
	mu       sync.Mutex
	frames   []tracker.Frame
	idx      int
	err      error
	infinite bool
	delay    time.Duration
	closed   bool
	parent   *fakeTracker
}

func (s *fakeStream) Next() (tracker.Frame, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tracker.Frame{}, io.EOF
	}
	if s.idx < len(s.frames) {
		frame := s.frames[s.idx]
		s.idx++
		return frame, nil
	}
	if s.err != nil {
		return tracker.Frame{}, s.err
	}
	if s.infinite {
		s.idx++
		return tracker.Frame{Index: s.idx}, nil
	}
	return tracker.Frame{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.recordEvent("close")
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeTracker struct {
	mu        sync.Mutex
	probeInfo tracker.SourceInfo
	probeErr  error
	openErr   error
	frames    []tracker.Frame
	streamErr error
	infinite  bool
	delay     time.Duration
	events    []string
	streams   []*fakeStream
}

func (f *fakeTracker) Probe(string) (tracker.SourceInfo, error) {
	if f.probeErr != nil {
		return tracker.SourceInfo{}, f.probeErr
	}
	return f.probeInfo, nil
}

func (f *fakeTracker) OpenStream(tracker.StreamRequest) (tracker.IStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stream := &fakeStream{
		frames:   f.frames,
		err:      f.streamErr,
		infinite: f.infinite,
		delay:    f.delay,
		parent:   f,
	}
	f.events = append(f.events, "open")
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeTracker) recordEvent(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeTracker) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]string, len(f.events))
	copy(events, f.events)
	return events
}

func (f *fakeTracker) lastStream() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

type fakeRedis struct {
	mu       sync.Mutex
	progress map[string][]float64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{progress: make(map[string][]float64)}
}

func (r *fakeRedis) SetJobProgress(_ context.Context, jobID string, progress float64, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[jobID] = append(r.progress[jobID], progress)
	return nil
}

func (r *fakeRedis) GetJobProgress(_ context.Context, jobID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := r.progress[jobID]
	if len(values) == 0 {
		return 0, nil
	}
	return values[len(values)-1], nil
}

func (r *fakeRedis) DeleteJobProgress(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.progress, jobID)
	return nil
}

func (r *fakeRedis) values(jobID string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]float64, len(r.progress[jobID]))
	copy(values, r.progress[jobID])
	return values
}

type fakeS3 struct {
	mu        sync.Mutex
	uploads   []string
	presigned []string
	deleted   []string
}

func (f *fakeS3) UploadArtifact(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	return "https://artifacts.s3.amazonaws.com/artifacts/" + filepath.Base(path), nil
}

func (f *fakeS3) PresignUrl(fileUrl string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigned = append(f.presigned, fileUrl)
	return fileUrl + "?signature=test", nil
}

func (f *fakeS3) DeleteFile(fileUrl string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileUrl)
	return nil
}

func (f *fakeS3) deletedFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := make([]string, len(f.deleted))
	copy(deleted, f.deleted)
	return deleted
}

type fakeSink struct {
	mu        sync.Mutex
	updates   []footfall.LiveUpdateMessage
	completed []footfall.LiveCompletedMessage
	failures  []footfall.LiveErrorMessage
}

func (s *fakeSink) SendUpdate(msg footfall.LiveUpdateMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, msg)
	return nil
}

func (s *fakeSink) SendCompleted(msg footfall.LiveCompletedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, msg)
	return nil
}

func (s *fakeSink) SendError(msg footfall.LiveErrorMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, msg)
	return nil
}

func (s *fakeSink) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func (s *fakeSink) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

func (s *fakeSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

func newTestService(t *testing.T, tr tracker.ITracker, store *fakeJobStore, redisClient *fakeRedis) *footfallService {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &footfallService{
		log:                logger,
		footfallRepository: store,
		tracker:            tr,
		utils:              utils.New(),
		outputDir:          t.TempDir(),
		jobCancels:         make(map[string]context.CancelFunc),
		liveSessions:       make(map[string]*liveSession),
	}
	if redisClient != nil {
		svc.redis = redisClient
	}
	return svc
}

var testLine = counter.Line{X1: 0, Y1: 50, X2: 100, Y2: 50}

func testCountingConfig(debounce int) entity.CountingConfig {
	return entity.CountingConfig{
		Line:                testLine,
		ConfidenceThreshold: 0.5,
		DebounceFrames:      debounce,
	}
}

func observationAt(id int64, x, y int) counter.TrackObservation {
	return counter.TrackObservation{
		TrackID: id,
		BBox:    counter.Rect{X1: x - 15, Y1: y - 15, X2: x + 15, Y2: y + 15},
		Center:  counter.Point{X: x, Y: y},
	}
}

// crossingFrames moves one track downward over the test line, producing a
// single exit event on the second frame.
func crossingFrames() []tracker.Frame {
	return []tracker.Frame{
		{Index: 1, Observations: []counter.TrackObservation{observationAt(1, 50, 40)}},
		{Index: 2, Observations: []counter.TrackObservation{observationAt(1, 50, 60)}},
	}
}
