package counter

type ICounter interface {
	Observe(frameNumber int, observations []TrackObservation) []CrossingEvent
	SnapshotCounts() Counts
	Events() []CrossingEvent
}

type debounceRecord struct {
	frameNumber int
	direction   Direction
}

// Counter accumulates directional line crossings for one processing run.
// It is owned by a single frame loop and is not safe for concurrent use.
type Counter struct {
	line           Line
	debounceFrames int

	entries int
	exits   int
	events  []CrossingEvent

	history      map[int64]TrackObservation
	recentEvents map[int64]debounceRecord
}

func New(line Line, debounceFrames int) *Counter {
	return &Counter{
		line:           line,
		debounceFrames: debounceFrames,
		history:        make(map[int64]TrackObservation),
		recentEvents:   make(map[int64]debounceRecord),
	}
}

// Observe runs crossing detection for every track visible in the frame and
// returns the events accepted in this frame. Tracks absent from the frame
// keep their last observation, so a brief detector dropout does not reset
// crossing or debounce state.
func (c *Counter) Observe(frameNumber int, observations []TrackObservation) []CrossingEvent {
	var accepted []CrossingEvent

	for _, obs := range observations {
		if prev, ok := c.history[obs.TrackID]; ok {
			if direction, crossed := DetectCrossing(c.line, prev, obs); crossed {
				if c.shouldAccept(obs.TrackID, frameNumber) {
					accepted = append(accepted, c.record(obs.TrackID, direction, frameNumber))
				}
			}
		}

		c.history[obs.TrackID] = obs
	}

	return accepted
}

func (c *Counter) shouldAccept(trackID int64, frameNumber int) bool {
	last, ok := c.recentEvents[trackID]
	if !ok {
		return true
	}
	return frameNumber-last.frameNumber > c.debounceFrames
}

func (c *Counter) record(trackID int64, direction Direction, frameNumber int) CrossingEvent {
	c.recentEvents[trackID] = debounceRecord{frameNumber: frameNumber, direction: direction}

	switch direction {
	case DirectionEntry:
		c.entries++
	case DirectionExit:
		c.exits++
	}

	event := CrossingEvent{
		TrackID:     trackID,
		Direction:   direction,
		FrameNumber: frameNumber,
	}
	c.events = append(c.events, event)

	return event
}

func (c *Counter) SnapshotCounts() Counts {
	return Counts{
		Entries: c.entries,
		Exits:   c.exits,
		Total:   c.entries + c.exits,
	}
}

func (c *Counter) Events() []CrossingEvent {
	events := make([]CrossingEvent, len(c.events))
	copy(events, c.events)
	return events
}
