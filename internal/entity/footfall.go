package entity

import (
	"FootfallGolang/internal/api/footfall"
	"FootfallGolang/pkg/counter"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

type JobKind string

const (
	JobKindVideoFile  JobKind = "video_file"
	JobKindLivestream JobKind = "livestream"
)

type ProcessingJob struct {
	ID          string    `json:"id"`
	Kind        JobKind   `json:"kind"`
	Status      JobStatus `json:"status"`
	InputSource string    `json:"input_source"`

	RoiX1               int     `json:"roi_x1"`
	RoiY1               int     `json:"roi_y1"`
	RoiX2               int     `json:"roi_x2"`
	RoiY2               int     `json:"roi_y2"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	DebounceFrames      int     `json:"debounce_frames"`

	EntryCount           int     `json:"entry_count"`
	ExitCount            int     `json:"exit_count"`
	TotalFramesProcessed int     `json:"total_frames_processed"`
	ProcessingDuration   float64 `json:"processing_duration"`
	FPS                  float64 `json:"fps"`

	OutputPath   string `json:"output_path"`
	ErrorMessage string `json:"error_message"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// CountingConfig is the per-run configuration the counting engine consumes.
type CountingConfig struct {
	Line                counter.Line
	ConfidenceThreshold float64
	DebounceFrames      int
}

func (c CountingConfig) Validate() error {
	if c.Line.IsDegenerate() {
		return footfall.ErrInvalidROI
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return footfall.ErrInvalidConfidence
	}

	if c.DebounceFrames < 0 {
		return footfall.ErrInvalidDebounce
	}

	return nil
}
