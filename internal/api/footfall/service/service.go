package footfallService

import (
	"FootfallGolang/internal/api/footfall"
	footfallRepository "FootfallGolang/internal/api/footfall/repository"
	"FootfallGolang/internal/entity"
	"FootfallGolang/pkg/redis"
	"FootfallGolang/pkg/s3"
	"FootfallGolang/pkg/tracker"
	"FootfallGolang/pkg/utils"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	defaultConfidenceThreshold = 0.5
	defaultDebounceFrames      = 50

	// COCO class index for person; the only class the tracker is asked for.
	personClass = 0
)

type IFootfallService interface {
	CreateFileJob(ctx context.Context, req footfall.CreateJobRequest) (entity.ProcessingJob, error)
	ProcessLivestream(ctx context.Context, req footfall.LivestreamRequest) (entity.ProcessingJob, error)
	GetJob(ctx context.Context, id string) (entity.ProcessingJob, float64, error)
	GetJobs(ctx context.Context) ([]entity.ProcessingJob, error)
	CancelJob(ctx context.Context, id string) error
	StartLiveSession(clientKey string, req footfall.StartLiveSessionRequest, sink UpdateSink) error
	StopLiveSession(clientKey string)
}

type footfallService struct {
	log                *logrus.Logger
	footfallRepository footfallRepository.Repository
	tracker            tracker.ITracker
	redis              redis.IRedis
	s3                 s3.ItfS3
	utils              utils.IUtils

	outputDir string

	jobMu      sync.Mutex
	jobCancels map[string]context.CancelFunc

	liveMu       sync.Mutex
	liveSessions map[string]*liveSession
}

func NewFootfallService(
	log *logrus.Logger,
	fr footfallRepository.Repository,
	trackerClient tracker.ITracker,
	redisClient redis.IRedis,
	s3Client s3.ItfS3,
	utils utils.IUtils,
) IFootfallService {
	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "output"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Errorf("Failed to create output directory %s: %v", outputDir, err)
	}

	return &footfallService{
		log:                log,
		footfallRepository: fr,
		tracker:            trackerClient,
		redis:              redisClient,
		s3:                 s3Client,
		utils:              utils,
		outputDir:          outputDir,
		jobCancels:         make(map[string]context.CancelFunc),
		liveSessions:       make(map[string]*liveSession),
	}
}

func makeCountingConfig(roi footfall.ROILineRequest, confidence *float64, debounce *int) entity.CountingConfig {
	cfg := entity.CountingConfig{
		Line:                roi.ToLine(),
		ConfidenceThreshold: defaultConfidenceThreshold,
		DebounceFrames:      defaultDebounceFrames,
	}

	if confidence != nil {
		cfg.ConfidenceThreshold = *confidence
	}
	if debounce != nil {
		cfg.DebounceFrames = *debounce
	}

	return cfg
}
