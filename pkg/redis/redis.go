package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

type IRedis interface {
	SetJobProgress(ctx context.Context, jobID string, progress float64, expiration time.Duration) error
	GetJobProgress(ctx context.Context, jobID string) (float64, error)
	DeleteJobProgress(ctx context.Context, jobID string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func progressKey(jobID string) string {
	return fmt.Sprintf("footfall:progress:%s", jobID)
}

func (r *redisClient) SetJobProgress(ctx context.Context, jobID string, progress float64, expiration time.Duration) error {
	err := r.client.Set(ctx, progressKey(jobID), progress, expiration).Err()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error setting progress for job %s: %v", jobID, err))
		return err
	}
	return nil
}

func (r *redisClient) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	val, err := r.client.Get(ctx, progressKey(jobID)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, err
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting progress for job %s: %v", jobID, err))
		return 0, err
	}
	return val, nil
}

func (r *redisClient) DeleteJobProgress(ctx context.Context, jobID string) error {
	_, err := r.client.Del(ctx, progressKey(jobID)).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting progress for job %s: %v", jobID, err))
		return err
	}
	return nil
}
