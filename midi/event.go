package midi

// Status bytes the looper cares about
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0

	metaPrefix     uint8 = 0xFF
	metaEndOfTrack uint8 = 0x2F
	realtimeMin    uint8 = 0xF8 // timing clock, start/stop, active sense...
)

// Event is a MIDI message placed at an absolute tick offset inside a loop.
// Msg holds raw bytes; meta messages keep their 0xFF prefix.
type Event struct {
	Tick int
	Msg  []byte
}

// DeltaEvent is a message as stored in a file track: relative to the
// previous event of the same track.
type DeltaEvent struct {
	Delta uint32
	Msg   []byte
}

// IsMeta reports whether the message is file structure rather than
// something a device should receive.
func (e Event) IsMeta() bool {
	return IsMeta(e.Msg)
}

// IsEndOfTrack reports whether the event is an end-of-track marker.
func (e Event) IsEndOfTrack() bool {
	return len(e.Msg) >= 2 && e.Msg[0] == metaPrefix && e.Msg[1] == metaEndOfTrack
}

// EndOfTrack builds the terminal marker for a loop of the given length.
func EndOfTrack(tick int) Event {
	return Event{Tick: tick, Msg: []byte{metaPrefix, metaEndOfTrack, 0x00}}
}

// IsMeta reports whether raw bytes are an SMF meta message.
func IsMeta(msg []byte) bool {
	return len(msg) > 0 && msg[0] == metaPrefix
}

// IsRealtime reports system realtime messages (clock, start, stop...).
// These are never recorded.
func IsRealtime(msg []byte) bool {
	return len(msg) == 1 && msg[0] >= realtimeMin && msg[0] != metaPrefix
}
