package footfallHandler

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/internal/entity"
	contextPkg "FootfallGolang/pkg/context"
	"FootfallGolang/pkg/handlerUtil"
	"FootfallGolang/pkg/log"
	"errors"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

func (h *FootfallHandler) CreateJob(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create job request")

	var req footfall.CreateJobRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	job, err := h.footfallService.CreateFileJob(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_job")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"job_id":     job.ID,
		}).Info("Processing job created")
		return errHandler.HandleSuccess(ctx, fiber.StatusAccepted, makeJobResponse(job, 0))
	}
}

func (h *FootfallHandler) ProcessLivestream(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Minute)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing livestream request")

	var req footfall.LivestreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	job, err := h.footfallService.ProcessLivestream(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_livestream")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"job_id":     job.ID,
			"entries":    job.EntryCount,
			"exits":      job.ExitCount,
		}).Info("Livestream processing finished")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, makeJobResponse(job, 0))
	}
}

func (h *FootfallHandler) GetJobs(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing get jobs request")

	jobs, err := h.footfallService.GetJobs(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_jobs")
	}

	jobResponses := make([]footfall.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		jobResponses = append(jobResponses, makeJobResponse(job, 0))
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, footfall.JobListResponse{
			Jobs: jobResponses,
		})
	}
}

func (h *FootfallHandler) GetJob(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing get job request")

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("job ID is required"), ctx.Path())
	}

	job, progress, err := h.footfallService.GetJob(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_job")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, makeJobResponse(job, progress))
	}
}

func (h *FootfallHandler) CancelJob(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing cancel job request")

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("job ID is required"), ctx.Path())
	}

	if err := h.footfallService.CancelJob(c, id); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "cancel_job")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"job_id":     id,
		}).Info("Processing job cancelled")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"message": "Job cancelled successfully",
		})
	}
}

func makeJobResponse(job entity.ProcessingJob, progress float64) footfall.JobResponse {
	response := footfall.JobResponse{
		ID:                   job.ID,
		Kind:                 string(job.Kind),
		Status:               string(job.Status),
		InputSource:          job.InputSource,
		EntryCount:           job.EntryCount,
		ExitCount:            job.ExitCount,
		TotalFramesProcessed: job.TotalFramesProcessed,
		ProcessingDuration:   job.ProcessingDuration,
		FPS:                  job.FPS,
		OutputPath:           job.OutputPath,
		ErrorMessage:         job.ErrorMessage,
		Progress:             progress,
		CreatedAt:            job.CreatedAt.Format(time.RFC3339),
	}

	if job.StartedAt != nil {
		response.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		response.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	return response
}
