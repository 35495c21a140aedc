package sequencer

// State is a point-in-time copy of the session for the UI and the control
// surface. It shares nothing with the live session.
type State struct {
	Playing      bool    `json:"playing"`
	Tempo        float64 `json:"tempo"`
	TicksPerBeat int     `json:"ticksPerBeat"`
	AbsoluteTick int64   `json:"absoluteTick"`
	RelativeTick int     `json:"relativeTick"`
	Beat         int     `json:"beat"`

	Tracks    []TrackState   `json:"tracks"`
	Recorders []RecorderInfo `json:"recorders"`
}

// TrackState describes one loop
type TrackState struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Kind        TrackKind `json:"kind"`
	LoopLength  int       `json:"loopLength"`
	Position    int       `json:"position"`
	Enabled     bool      `json:"enabled"`
	ChangeArmed bool      `json:"changeArmed"`
	Recorded    bool      `json:"recorded"`
}

// RecorderInfo describes one recorder
type RecorderInfo struct {
	Kind         TrackKind     `json:"kind"`
	State        RecorderState `json:"state"`
	ElapsedTicks int           `json:"elapsedTicks"`
}

// Recorder returns the info for the recorder of the given kind.
func (s State) Recorder(kind TrackKind) (RecorderInfo, bool) {
	for _, r := range s.Recorders {
		if r.Kind == kind {
			return r, true
		}
	}
	return RecorderInfo{}, false
}

// Track returns the track with the given display id.
func (s State) Track(id int) (TrackState, bool) {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return TrackState{}, false
}

// Progress is how far through its loop a track is, in [0, 1].
func (t TrackState) Progress() float64 {
	if t.LoopLength <= 0 || t.Position <= 0 {
		return 0
	}
	return float64(t.Position) / float64(t.LoopLength)
}
