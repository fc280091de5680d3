package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSide(t *testing.T) {
	line := Line{X1: 0, Y1: 50, X2: 100, Y2: 50}

	assert.Positive(t, side(line, Point{X: 50, Y: 40}))
	assert.Negative(t, side(line, Point{X: 50, Y: 60}))
	assert.Zero(t, side(line, Point{X: 50, Y: 50}))
}

func TestSegmentsIntersect(t *testing.T) {
	t.Run("crossing segments", func(t *testing.T) {
		assert.True(t, segmentsIntersect(
			Point{0, 0}, Point{10, 10},
			Point{0, 10}, Point{10, 0},
		))
	})

	t.Run("disjoint segments", func(t *testing.T) {
		assert.False(t, segmentsIntersect(
			Point{0, 0}, Point{10, 0},
			Point{0, 5}, Point{10, 5},
		))
	})

	t.Run("touching endpoint counts", func(t *testing.T) {
		assert.True(t, segmentsIntersect(
			Point{0, 50}, Point{100, 50},
			Point{40, 30}, Point{40, 50},
		))
	})

	t.Run("collinear overlap counts", func(t *testing.T) {
		assert.True(t, segmentsIntersect(
			Point{0, 50}, Point{100, 50},
			Point{40, 50}, Point{60, 50},
		))
	})

	t.Run("collinear disjoint", func(t *testing.T) {
		assert.False(t, segmentsIntersect(
			Point{0, 0}, Point{10, 0},
			Point{20, 0}, Point{30, 0},
		))
	})
}

func TestLineTouchesRect(t *testing.T) {
	line := Line{X1: 0, Y1: 50, X2: 100, Y2: 50}

	assert.True(t, lineTouchesRect(line, Rect{X1: 40, Y1: 30, X2: 60, Y2: 70}))
	assert.True(t, lineTouchesRect(line, Rect{X1: 40, Y1: 30, X2: 60, Y2: 50}))
	assert.False(t, lineTouchesRect(line, Rect{X1: 40, Y1: 0, X2: 60, Y2: 20}))
}
