package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testLine = Line{X1: 0, Y1: 50, X2: 100, Y2: 50}

func observation(id int64, cx, cy int) TrackObservation {
	return TrackObservation{
		TrackID: id,
		Center:  Point{X: cx, Y: cy},
		BBox:    Rect{X1: cx - 15, Y1: cy - 15, X2: cx + 15, Y2: cy + 15},
	}
}

func TestDetectCrossing(t *testing.T) {
	t.Run("downward movement is exit", func(t *testing.T) {
		direction, crossed := DetectCrossing(testLine, observation(1, 50, 40), observation(1, 50, 60))

		assert.True(t, crossed)
		assert.Equal(t, DirectionExit, direction)
	})

	t.Run("upward movement is entry", func(t *testing.T) {
		direction, crossed := DetectCrossing(testLine, observation(1, 50, 60), observation(1, 50, 40))

		assert.True(t, crossed)
		assert.Equal(t, DirectionEntry, direction)
	})

	t.Run("no sign flip means no crossing regardless of bbox", func(t *testing.T) {
		// Both centers below the line while the boxes straddle it.
		prev := TrackObservation{TrackID: 1, Center: Point{50, 60}, BBox: Rect{40, 45, 60, 75}}
		curr := TrackObservation{TrackID: 1, Center: Point{50, 55}, BBox: Rect{40, 40, 60, 70}}

		_, crossed := DetectCrossing(testLine, prev, curr)

		assert.False(t, crossed)
	})

	t.Run("sign flip without bbox touch is rejected", func(t *testing.T) {
		prev := TrackObservation{TrackID: 1, Center: Point{50, 45}, BBox: Rect{48, 43, 52, 47}}
		curr := TrackObservation{TrackID: 1, Center: Point{50, 55}, BBox: Rect{48, 53, 52, 57}}

		_, crossed := DetectCrossing(testLine, prev, curr)

		assert.False(t, crossed)
	})

	t.Run("touch in a single frame corroborates", func(t *testing.T) {
		prev := TrackObservation{TrackID: 1, Center: Point{50, 45}, BBox: Rect{48, 43, 52, 47}}
		curr := TrackObservation{TrackID: 1, Center: Point{50, 55}, BBox: Rect{40, 45, 60, 65}}

		direction, crossed := DetectCrossing(testLine, prev, curr)

		assert.True(t, crossed)
		assert.Equal(t, DirectionExit, direction)
	})

	t.Run("center exactly on the line never crosses", func(t *testing.T) {
		_, crossed := DetectCrossing(testLine, observation(1, 50, 50), observation(1, 50, 60))

		assert.False(t, crossed)
	})
}
