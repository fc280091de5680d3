package tracker

import (
	"FootfallGolang/pkg/counter"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceUnopenable = errors.New("source could not be opened")
)

// DetectorError wraps a failure reported by the tracking service, keeping
// the upstream message intact.
type DetectorError struct {
	Message string
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("tracking service failure: %s", e.Message)
}

type SourceInfo struct {
	FrameCount      int     `json:"frame_count"`
	FrameCountKnown bool    `json:"frame_count_known"`
	FPS             float64 `json:"fps"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

type Frame struct {
	Index        int
	Observations []counter.TrackObservation
}

type StreamRequest struct {
	Source     string
	Classes    []int
	Confidence float64
}

type IStream interface {
	Next() (Frame, error)
	Close() error
}

type ITracker interface {
	Probe(source string) (SourceInfo, error)
	OpenStream(req StreamRequest) (IStream, error)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type trackerClient struct {
	serviceURL   string
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func New() ITracker {
	serviceURL := os.Getenv("AI_TRACKER_SERVICE_URL")
	if serviceURL == "" {
		serviceURL = "ws://localhost:8000/api/v1/track/ws"
	}

	return &trackerClient{
		serviceURL:   serviceURL,
		dialTimeout:  10 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

type requestMessage struct {
	Action     string  `json:"action"`
	Source     string  `json:"source"`
	Classes    []int   `json:"classes,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type wireObservation struct {
	TrackID int64  `json:"track_id"`
	BBox    [4]int `json:"bbox"`
}

type serviceMessage struct {
	Type            string            `json:"type"`
	Code            string            `json:"code,omitempty"`
	Message         string            `json:"message,omitempty"`
	Index           int               `json:"index,omitempty"`
	Tracks          []wireObservation `json:"tracks,omitempty"`
	FrameCount      int               `json:"frame_count,omitempty"`
	FrameCountKnown bool              `json:"frame_count_known,omitempty"`
	FPS             float64           `json:"fps,omitempty"`
	Width           int               `json:"width,omitempty"`
	Height          int               `json:"height,omitempty"`
}

func (c *trackerClient) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}

	conn, _, err := dialer.Dial(c.serviceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tracking service at %s: %w", c.serviceURL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
	})

	return conn, nil
}

// isLocalPath reports whether the source descriptor refers to a local file
// rather than a camera index or stream URL.
func isLocalPath(source string) bool {
	if source == "" {
		return false
	}
	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		return false
	}
	return strings.ContainsAny(source, "/\\.")
}

func (c *trackerClient) Probe(source string) (SourceInfo, error) {
	if isLocalPath(source) {
		if _, err := os.Stat(source); os.IsNotExist(err) {
			return SourceInfo{}, ErrSourceNotFound
		}
	}

	conn, err := c.dial()
	if err != nil {
		return SourceInfo{}, err
	}
	defer conn.Close()

	if err := c.writeRequest(conn, requestMessage{Action: "probe", Source: source}); err != nil {
		return SourceInfo{}, err
	}

	msg, err := c.readMessage(conn)
	if err != nil {
		return SourceInfo{}, err
	}

	switch msg.Type {
	case "source_info":
		return SourceInfo{
			FrameCount:      msg.FrameCount,
			FrameCountKnown: msg.FrameCountKnown,
			FPS:             msg.FPS,
			Width:           msg.Width,
			Height:          msg.Height,
		}, nil
	case "error":
		return SourceInfo{}, mapServiceError(msg)
	default:
		return SourceInfo{}, fmt.Errorf("unexpected message type %q from tracking service", msg.Type)
	}
}

func (c *trackerClient) OpenStream(req StreamRequest) (IStream, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	start := requestMessage{
		Action:     "track",
		Source:     req.Source,
		Classes:    req.Classes,
		Confidence: req.Confidence,
	}

	if err := c.writeRequest(conn, start); err != nil {
		conn.Close()
		return nil, err
	}

	return &trackStream{client: c, conn: conn}, nil
}

func (c *trackerClient) writeRequest(conn *websocket.Conn, req requestMessage) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("error sending request to tracking service: %w", err)
	}

	return nil
}

func (c *trackerClient) readMessage(conn *websocket.Conn) (serviceMessage, error) {
	conn.SetReadDeadline(time.Now().Add(c.readTimeout))

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return serviceMessage{}, fmt.Errorf("error reading from tracking service: %w", err)
	}

	var msg serviceMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return serviceMessage{}, fmt.Errorf("error unmarshaling tracking service message: %w", err)
	}

	return msg, nil
}

func mapServiceError(msg serviceMessage) error {
	switch msg.Code {
	case "source_not_found":
		return ErrSourceNotFound
	case "source_unopenable":
		return ErrSourceUnopenable
	default:
		return &DetectorError{Message: msg.Message}
	}
}

// trackStream is a forward-only sequence of per-frame track sets. It is not
// restartable; Close releases the source held by the service.
type trackStream struct {
	client *trackerClient
	conn   *websocket.Conn
	closed bool
}

func (s *trackStream) Next() (Frame, error) {
	if s.closed {
		return Frame{}, io.EOF
	}

	msg, err := s.client.readMessage(s.conn)
	if err != nil {
		return Frame{}, &DetectorError{Message: err.Error()}
	}

	switch msg.Type {
	case "frame":
		observations := make([]counter.TrackObservation, 0, len(msg.Tracks))
		for _, track := range msg.Tracks {
			bbox := counter.Rect{X1: track.BBox[0], Y1: track.BBox[1], X2: track.BBox[2], Y2: track.BBox[3]}
			observations = append(observations, counter.TrackObservation{
				TrackID: track.TrackID,
				BBox:    bbox,
				Center:  bbox.Center(),
			})
		}
		return Frame{Index: msg.Index, Observations: observations}, nil
	case "end":
		return Frame{}, io.EOF
	case "error":
		return Frame{}, mapServiceError(msg)
	default:
		return Frame{}, &DetectorError{Message: fmt.Sprintf("unexpected message type %q", msg.Type)}
	}
}

func (s *trackStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.client.writeTimeout))

	return s.conn.Close()
}
