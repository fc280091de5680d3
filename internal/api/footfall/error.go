package footfall

import "FootfallGolang/pkg/response"

var (
	ErrJobNotFound       = response.NewError(404, "processing job not found")
	ErrJobNotCancellable = response.NewError(409, "processing job already finished")
	ErrJobStateConflict  = response.NewError(409, "processing job is not in an eligible state")
	ErrSourceNotFound    = response.NewError(404, "video source not found")
	ErrSourceUnopenable  = response.NewError(422, "video source could not be opened")
	ErrEmptySource       = response.NewError(422, "video source has no frames")
	ErrInvalidROI        = response.NewError(400, "roi line endpoints must not coincide")
	ErrInvalidConfidence = response.NewError(400, "confidence threshold must be between 0 and 1")
	ErrInvalidDebounce   = response.NewError(400, "debounce frames must not be negative")
	ErrDetectorFailure   = response.NewError(502, "tracking service failure")
	ErrOutputWrite       = response.NewError(500, "failed to write annotated output")
	ErrCancelled         = response.NewError(409, "processing cancelled")
	ErrCreateJob         = response.NewError(500, "failed to create processing job")
)
