package utils

import (
	"crypto/rand"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateVideoSource(source string) error
}

type utils struct {
	videoExtensions map[string]struct{}
}

func New() IUtils {
	return &utils{
		videoExtensions: map[string]struct{}{
			".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {},
		},
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateVideoSource accepts stream URLs as-is and checks local paths for a
// known video extension.
func (u *utils) ValidateVideoSource(source string) error {
	if source == "" {
		return errors.New("no video source provided")
	}

	if strings.Contains(source, "://") {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(source))
	if _, ok := u.videoExtensions[ext]; !ok {
		return errors.New("source is not a supported video file")
	}

	return nil
}
