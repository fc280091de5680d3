package footfallRepository

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/internal/entity"
	contextPkg "FootfallGolang/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ProcessingJobDB struct {
	ID                   sql.NullString  `db:"id"`
	Kind                 sql.NullString  `db:"kind"`
	Status               sql.NullString  `db:"status"`
	InputSource          sql.NullString  `db:"input_source"`
	RoiX1                sql.NullInt64   `db:"roi_x1"`
	RoiY1                sql.NullInt64   `db:"roi_y1"`
	RoiX2                sql.NullInt64   `db:"roi_x2"`
	RoiY2                sql.NullInt64   `db:"roi_y2"`
	ConfidenceThreshold  sql.NullFloat64 `db:"confidence_threshold"`
	DebounceFrames       sql.NullInt64   `db:"debounce_frames"`
	EntryCount           sql.NullInt64   `db:"entry_count"`
	ExitCount            sql.NullInt64   `db:"exit_count"`
	TotalFramesProcessed sql.NullInt64   `db:"total_frames_processed"`
	ProcessingDuration   sql.NullFloat64 `db:"processing_duration"`
	FPS                  sql.NullFloat64 `db:"fps"`
	OutputPath           sql.NullString  `db:"output_path"`
	ErrorMessage         sql.NullString  `db:"error_message"`
	CreatedAt            time.Time       `db:"created_at"`
	StartedAt            sql.NullTime    `db:"started_at"`
	CompletedAt          sql.NullTime    `db:"completed_at"`
}

func (r *jobRepository) CreateJob(c context.Context, job entity.ProcessingJob) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":                     job.ID,
		"kind":                   job.Kind,
		"status":                 job.Status,
		"input_source":           job.InputSource,
		"roi_x1":                 job.RoiX1,
		"roi_y1":                 job.RoiY1,
		"roi_x2":                 job.RoiX2,
		"roi_y2":                 job.RoiY2,
		"confidence_threshold":   job.ConfidenceThreshold,
		"debounce_frames":        job.DebounceFrames,
		"entry_count":            job.EntryCount,
		"exit_count":             job.ExitCount,
		"total_frames_processed": job.TotalFramesProcessed,
		"processing_duration":    job.ProcessingDuration,
		"fps":                    job.FPS,
		"output_path":            job.OutputPath,
		"error_message":          job.ErrorMessage,
		"created_at":             job.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateJob")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating processing job")

		return err
	}

	return nil
}

func (r *jobRepository) GetJobByID(c context.Context, id string) (entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(c)
	var job ProcessingJobDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetJobByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetJobByID named query preparation err")

		return entity.ProcessingJob{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("GetJobByID no rows found")
			return entity.ProcessingJob{}, footfall.ErrJobNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetJobByID execution err")
		return entity.ProcessingJob{}, err
	}

	return r.makeProcessingJob(job), nil
}

func (r *jobRepository) GetJobs(c context.Context) ([]entity.ProcessingJob, error) {
	requestID := contextPkg.GetRequestID(c)
	var jobs []ProcessingJobDB

	query := r.q.Rebind(queryGetJobs)

	if err := r.q.SelectContext(c, &jobs, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetJobs execution err")
		return nil, err
	}

	result := make([]entity.ProcessingJob, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, r.makeProcessingJob(job))
	}

	return result, nil
}

func (r *jobRepository) MarkJobProcessing(c context.Context, id string, startedAt time.Time) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         id,
		"started_at": startedAt,
	}

	query, args, err := sqlx.Named(queryMarkJobProcessing, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkJobProcessing named query preparation err")

		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkJobProcessing execution err")

		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkJobProcessing rows affected err")

		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
		}).Warn("MarkJobProcessing no pending job to transition")

		return footfall.ErrJobStateConflict
	}

	return nil
}

func (r *jobRepository) CompleteJob(c context.Context, job entity.ProcessingJob) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":                     job.ID,
		"entry_count":            job.EntryCount,
		"exit_count":             job.ExitCount,
		"total_frames_processed": job.TotalFramesProcessed,
		"processing_duration":    job.ProcessingDuration,
		"fps":                    job.FPS,
		"output_path":            job.OutputPath,
		"completed_at":           job.CompletedAt,
	}

	query, args, err := sqlx.Named(queryCompleteJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteJob named query preparation err")

		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteJob execution err")

		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteJob rows affected err")

		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     job.ID,
		}).Warn("CompleteJob no processing job to transition")

		return footfall.ErrJobStateConflict
	}

	return nil
}

func (r *jobRepository) FailJob(c context.Context, id string, errorMessage string, completedAt time.Time) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":            id,
		"error_message": errorMessage,
		"completed_at":  completedAt,
	}

	query, args, err := sqlx.Named(queryFailJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FailJob named query preparation err")

		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FailJob execution err")

		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FailJob rows affected err")

		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
		}).Warn("FailJob no active job to transition")

		return footfall.ErrJobStateConflict
	}

	return nil
}

func (r *jobRepository) CancelJob(c context.Context, id string, completedAt time.Time) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":           id,
		"completed_at": completedAt,
	}

	query, args, err := sqlx.Named(queryCancelJob, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CancelJob named query preparation err")

		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CancelJob execution err")

		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CancelJob rows affected err")

		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"job_id":     id,
		}).Warn("CancelJob no active job to transition")

		return footfall.ErrJobNotCancellable
	}

	return nil
}

func (r *jobRepository) makeProcessingJob(job ProcessingJobDB) entity.ProcessingJob {
	result := entity.ProcessingJob{
		ID:                   job.ID.String,
		Kind:                 entity.JobKind(job.Kind.String),
		Status:               entity.JobStatus(job.Status.String),
		InputSource:          job.InputSource.String,
		RoiX1:                int(job.RoiX1.Int64),
		RoiY1:                int(job.RoiY1.Int64),
		RoiX2:                int(job.RoiX2.Int64),
		RoiY2:                int(job.RoiY2.Int64),
		ConfidenceThreshold:  job.ConfidenceThreshold.Float64,
		DebounceFrames:       int(job.DebounceFrames.Int64),
		EntryCount:           int(job.EntryCount.Int64),
		ExitCount:            int(job.ExitCount.Int64),
		TotalFramesProcessed: int(job.TotalFramesProcessed.Int64),
		ProcessingDuration:   job.ProcessingDuration.Float64,
		FPS:                  job.FPS.Float64,
		OutputPath:           job.OutputPath.String,
		ErrorMessage:         job.ErrorMessage.String,
		CreatedAt:            job.CreatedAt,
	}

	if job.StartedAt.Valid {
		startedAt := job.StartedAt.Time
		result.StartedAt = &startedAt
	}
	if job.CompletedAt.Valid {
		completedAt := job.CompletedAt.Time
		result.CompletedAt = &completedAt
	}

	return result
}
