package counter

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

type Line struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (l Line) IsDegenerate() bool {
	return l.X1 == l.X2 && l.Y1 == l.Y2
}

type TrackObservation struct {
	TrackID int64 `json:"track_id"`
	BBox    Rect  `json:"bbox"`
	Center  Point `json:"center"`
}

type CrossingEvent struct {
	TrackID     int64     `json:"track_id"`
	Direction   Direction `json:"direction"`
	FrameNumber int       `json:"frame_number"`
}

type Counts struct {
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
	Total   int `json:"total"`
}
