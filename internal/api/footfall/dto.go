package footfall

import "FootfallGolang/pkg/counter"

type ROILineRequest struct {
	X1 int `json:"x1" validate:"gte=0"`
	Y1 int `json:"y1" validate:"gte=0"`
	X2 int `json:"x2" validate:"gte=0"`
	Y2 int `json:"y2" validate:"gte=0"`
}

func (r ROILineRequest) ToLine() counter.Line {
	return counter.Line{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2}
}

// ConfidenceThreshold and DebounceFrames are pointers so that an explicit
// zero survives the trip through JSON; absent values fall back to the
// defaults the configuration provider ships.
type CreateJobRequest struct {
	Source              string         `json:"source" validate:"required"`
	ROILine             ROILineRequest `json:"roi_line" validate:"required"`
	ConfidenceThreshold *float64       `json:"confidence_threshold"`
	DebounceFrames      *int           `json:"debounce_frames"`
}

type LivestreamRequest struct {
	StreamURL           string         `json:"stream_url" validate:"required"`
	ROILine             ROILineRequest `json:"roi_line" validate:"required"`
	ConfidenceThreshold *float64       `json:"confidence_threshold"`
	DebounceFrames      *int           `json:"debounce_frames"`
	MaxDurationSeconds  int            `json:"max_duration" validate:"gte=0"`
}

type StartLiveSessionRequest struct {
	StreamURL           string         `json:"stream_url" validate:"required"`
	ROILine             ROILineRequest `json:"roi_line" validate:"required"`
	ConfidenceThreshold *float64       `json:"confidence_threshold"`
	DebounceFrames      *int           `json:"debounce_frames"`
	MaxDurationSeconds  int            `json:"max_duration" validate:"gte=0"`
}

type JobResponse struct {
	ID                   string  `json:"id"`
	Kind                 string  `json:"kind"`
	Status               string  `json:"status"`
	InputSource          string  `json:"input_source"`
	EntryCount           int     `json:"entry_count"`
	ExitCount            int     `json:"exit_count"`
	TotalFramesProcessed int     `json:"total_frames_processed"`
	ProcessingDuration   float64 `json:"processing_duration"`
	FPS                  float64 `json:"fps,omitempty"`
	OutputPath           string  `json:"output_path,omitempty"`
	ErrorMessage         string  `json:"error_message,omitempty"`
	Progress             float64 `json:"progress,omitempty"`
	CreatedAt            string  `json:"created_at"`
	StartedAt            string  `json:"started_at,omitempty"`
	CompletedAt          string  `json:"completed_at,omitempty"`
}

type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// Live session websocket messages.
type LiveStatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type LiveUpdateMessage struct {
	Type       string `json:"type"`
	FrameCount int    `json:"frame_count"`
	EntryCount int    `json:"entry_count"`
	ExitCount  int    `json:"exit_count"`
	TotalCount int    `json:"total_count"`
}

type LiveCompletedMessage struct {
	Type        string         `json:"type"`
	FinalCounts counter.Counts `json:"final_counts"`
	TotalFrames int            `json:"total_frames"`
}

type LiveErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
