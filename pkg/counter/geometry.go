package counter

// side reports which half-plane p occupies relative to the line.
// Zero means p sits exactly on the line.
func side(l Line, p Point) int {
	return (l.Y2-l.Y1)*p.X - (l.X2-l.X1)*p.Y + (l.X2*l.Y1 - l.X1*l.Y2)
}

func orientation(a, b, c Point) int {
	v := (b.Y-a.Y)*(c.X-b.X) - (b.X-a.X)*(c.Y-b.Y)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether c, already known collinear with a-b, lies on it.
func onSegment(a, b, c Point) bool {
	return min(a.X, b.X) <= c.X && c.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= c.Y && c.Y <= max(a.Y, b.Y)
}

// segmentsIntersect runs the counter-clockwise orientation test for the
// segments p1-p2 and q1-q2, including the collinear touching cases so a box
// edge resting exactly on the line still counts as an intersection.
func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	if o3 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if o4 == 0 && onSegment(q1, q2, p2) {
		return true
	}

	return false
}

func rectEdges(r Rect) [4][2]Point {
	return [4][2]Point{
		{{r.X1, r.Y1}, {r.X2, r.Y1}},
		{{r.X2, r.Y1}, {r.X2, r.Y2}},
		{{r.X2, r.Y2}, {r.X1, r.Y2}},
		{{r.X1, r.Y2}, {r.X1, r.Y1}},
	}
}

func lineTouchesRect(l Line, r Rect) bool {
	a := Point{X: l.X1, Y: l.Y1}
	b := Point{X: l.X2, Y: l.Y2}

	for _, edge := range rectEdges(r) {
		if segmentsIntersect(a, b, edge[0], edge[1]) {
			return true
		}
	}

	return false
}
