package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/internal/entity"
	contextPkg "FootfallGolang/pkg/context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const progressTTL = time.Hour

func (s *footfallService) CreateFileJob(ctx context.Context, req footfall.CreateJobRequest) (entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(ctx)

	cfg := makeCountingConfig(req.ROILine, req.ConfidenceThreshold, req.DebounceFrames)
	if err := cfg.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected job with invalid counting configuration")
		return entity.ProcessingJob{}, err
	}

	if err := s.utils.ValidateVideoSource(req.Source); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"source":     req.Source,
			"error":      err.Error(),
		}).Warn("Rejected job with unsupported source")
		return entity.ProcessingJob{}, footfall.ErrSourceUnopenable
	}

	job, err := s.createJob(ctx, entity.JobKindVideoFile, req.Source, cfg)
	if err != nil {
		return entity.ProcessingJob{}, err
	}

	runCtx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))

	s.jobMu.Lock()
	s.jobCancels[job.ID] = cancel
	s.jobMu.Unlock()

	go s.runJob(runCtx, job, cfg)

	return job, nil
}

func (s *footfallService) ProcessLivestream(ctx context.Context, req footfall.LivestreamRequest) (entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(ctx)

	cfg := makeCountingConfig(req.ROILine, req.ConfidenceThreshold, req.DebounceFrames)
	if err := cfg.Validate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected livestream with invalid counting configuration")
		return entity.ProcessingJob{}, err
	}

	job, err := s.createJob(ctx, entity.JobKindLivestream, req.StreamURL, cfg)
	if err != nil {
		return entity.ProcessingJob{}, err
	}

	runCtx, cancel := context.WithCancel(contextPkg.WithRequestID(ctx, requestID))
	defer cancel()

	s.jobMu.Lock()
	s.jobCancels[job.ID] = cancel
	s.jobMu.Unlock()

	s.runJobSync(runCtx, job, cfg, time.Duration(req.MaxDurationSeconds)*time.Second)

	s.jobMu.Lock()
	delete(s.jobCancels, job.ID)
	s.jobMu.Unlock()

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		return entity.ProcessingJob{}, err
	}

	return repo.Job.GetJobByID(ctx, job.ID)
}

func (s *footfallService) createJob(ctx context.Context, kind entity.JobKind, source string, cfg entity.CountingConfig) (entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.ProcessingJob{}, err
	}

	ULID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.ProcessingJob{}, err
	}

	job := entity.ProcessingJob{
		ID:                  ULID,
		Kind:                kind,
		Status:              entity.JobStatusPending,
		InputSource:         source,
		RoiX1:               cfg.Line.X1,
		RoiY1:               cfg.Line.Y1,
		RoiX2:               cfg.Line.X2,
		RoiY2:               cfg.Line.Y2,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		DebounceFrames:      cfg.DebounceFrames,
		CreatedAt:           time.Now(),
	}

	if err := repo.Job.CreateJob(ctx, job); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to persist processing job")
		return entity.ProcessingJob{}, footfall.ErrCreateJob
	}

	return job, nil
}

// runJob owns the whole background lifecycle of a file job. Every failure,
// panics included, lands in the job record; nothing escapes the goroutine.
func (s *footfallService) runJob(ctx context.Context, job entity.ProcessingJob, cfg entity.CountingConfig) {
	requestID := contextPkg.GetRequestID(ctx)

	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"job_id":     job.ID,
				"panic":      fmt.Sprintf("%v", r),
			}).Error("Processing run panicked")
			s.failJob(ctx, job.ID, fmt.Sprintf("internal error: %v", r))
		}

		s.jobMu.Lock()
		delete(s.jobCancels, job.ID)
		s.jobMu.Unlock()
	}()

	s.runJobSync(ctx, job, cfg, 0)
}

func (s *footfallService) runJobSync(ctx context.Context, job entity.ProcessingJob, cfg entity.CountingConfig, maxDuration time.Duration) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return
	}

	if err := repo.Job.MarkJobProcessing(ctx, job.ID, time.Now()); err != nil {
		// Cancelled before the run picked it up.
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     job.ID,
			"error":      err.Error(),
		}).Warn("Job no longer pending, skipping run")
		return
	}

	result, err := s.runCounting(ctx, runConfig{
		source:      job.InputSource,
		counting:    cfg,
		maxDuration: maxDuration,
		outputPath:  filepath.Join(s.outputDir, job.ID+"_annotations.jsonl"),
		progress: func(processed, total int) {
			s.publishProgress(ctx, job.ID, processed, total)
		},
	})

	if err != nil {
		if errors.Is(err, footfall.ErrCancelled) {
			// The run context may have died without the cancel endpoint
			// being called, e.g. a request deadline. The status guard makes
			// this a no-op when the endpoint already moved the record.
			writeCtx := contextPkg.WithRequestID(context.Background(), requestID)
			if cancelErr := repo.Job.CancelJob(writeCtx, job.ID, time.Now()); cancelErr != nil && !errors.Is(cancelErr, footfall.ErrJobNotCancellable) {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"job_id":     job.ID,
					"error":      cancelErr.Error(),
				}).Error("Failed to record job cancellation")
			}
			s.clearProgress(writeCtx, job.ID)

			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"job_id":     job.ID,
			}).Info("Processing job cancelled")
			return
		}

		s.failJob(ctx, job.ID, err.Error())
		return
	}

	outputPath := filepath.Join(s.outputDir, job.ID+"_annotations.jsonl")
	uploadedLocation := ""
	if s.s3 != nil {
		if location, uploadErr := s.s3.UploadArtifact(outputPath); uploadErr != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"job_id":     job.ID,
				"error":      uploadErr.Error(),
			}).Warn("Failed to upload annotation artifact, keeping local path")
		} else {
			outputPath = location
			uploadedLocation = location
		}
	}

	completedAt := time.Now()
	job.Status = entity.JobStatusCompleted
	job.EntryCount = result.Counts.Entries
	job.ExitCount = result.Counts.Exits
	job.TotalFramesProcessed = result.TotalFrames
	job.ProcessingDuration = result.Duration
	job.FPS = result.FPS
	job.OutputPath = outputPath
	job.CompletedAt = &completedAt

	if err := repo.Job.CompleteJob(ctx, job); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     job.ID,
			"error":      err.Error(),
		}).Error("Failed to record job completion")

		// Nothing references the upload anymore, a cancel won the race.
		if s.s3 != nil && uploadedLocation != "" {
			if delErr := s.s3.DeleteFile(uploadedLocation); delErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"job_id":     job.ID,
					"error":      delErr.Error(),
				}).Warn("Failed to remove orphaned annotation artifact")
			}
		}
		return
	}

	s.clearProgress(ctx, job.ID)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     job.ID,
		"entries":    result.Counts.Entries,
		"exits":      result.Counts.Exits,
		"frames":     result.TotalFrames,
	}).Info("Processing job completed")
}

func (s *footfallService) failJob(ctx context.Context, jobID string, message string) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return
	}

	if err := repo.Job.FailJob(ctx, jobID, message, time.Now()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     jobID,
			"error":      err.Error(),
		}).Error("Failed to record job failure")
	}

	s.clearProgress(ctx, jobID)
}

func (s *footfallService) clearProgress(ctx context.Context, jobID string) {
	if s.redis == nil {
		return
	}

	if err := s.redis.DeleteJobProgress(ctx, jobID); err != nil {
		s.log.WithFields(logrus.Fields{
			"job_id": jobID,
			"error":  err.Error(),
		}).Debug("Failed to clear job progress")
	}
}

func (s *footfallService) publishProgress(ctx context.Context, jobID string, processed, total int) {
	if s.redis == nil || total <= 0 {
		return
	}

	progress := float64(processed) / float64(total)
	if err := s.redis.SetJobProgress(ctx, jobID, progress, progressTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"job_id": jobID,
			"error":  err.Error(),
		}).Debug("Failed to publish job progress")
	}
}

func (s *footfallService) GetJob(ctx context.Context, id string) (entity.ProcessingJob, float64, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.ProcessingJob{}, 0, err
	}

	job, err := repo.Job.GetJobByID(ctx, id)
	if err != nil {
		return entity.ProcessingJob{}, 0, err
	}

	var progress float64
	switch job.Status {
	case entity.JobStatusCompleted:
		progress = 1
	case entity.JobStatusProcessing:
		if s.redis != nil {
			if p, err := s.redis.GetJobProgress(ctx, id); err == nil {
				progress = p
			}
		}
	}

	if job.Status == entity.JobStatusCompleted && s.s3 != nil && strings.HasPrefix(job.OutputPath, "http") {
		if signed, signErr := s.s3.PresignUrl(job.OutputPath); signErr != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"job_id":     id,
				"error":      signErr.Error(),
			}).Warn("Failed to presign annotation artifact")
		} else {
			job.OutputPath = signed
		}
	}

	return job, progress, nil
}

func (s *footfallService) GetJobs(ctx context.Context) ([]entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	return repo.Job.GetJobs(ctx)
}

func (s *footfallService) CancelJob(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.footfallRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return err
	}

	job, err := repo.Job.GetJobByID(ctx, id)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
			"status":     job.Status,
		}).Warn("Cancel requested for finished job")
		return footfall.ErrJobNotCancellable
	}

	if err := repo.Job.CancelJob(ctx, id, time.Now()); err != nil {
		return err
	}

	s.jobMu.Lock()
	cancel, ok := s.jobCancels[id]
	s.jobMu.Unlock()

	if ok {
		cancel()
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"job_id":     id,
	}).Info("Processing job cancelled")

	return nil
}
