package counter

// DetectCrossing decides whether a tracked object crossed the line between
// two consecutive observations. A crossing needs both a sign flip of the
// center relative to the line and a bounding box touching the line in at
// least one of the two frames, which filters out center jitter near the line.
func DetectCrossing(line Line, prev, curr TrackObservation) (Direction, bool) {
	prevSide := side(line, prev.Center)
	currSide := side(line, curr.Center)

	if prevSide == 0 || currSide == 0 {
		return "", false
	}
	if (prevSide < 0) == (currSide < 0) {
		return "", false
	}

	if !lineTouchesRect(line, prev.BBox) && !lineTouchesRect(line, curr.BBox) {
		return "", false
	}

	// The line's orientation fixes which physical direction is an entry.
	if prevSide < currSide {
		return DirectionEntry, true
	}
	return DirectionExit, true
}
