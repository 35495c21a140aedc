package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultResolution is used when a file does not carry metric ticks.
const DefaultResolution = 960

// Song is a decoded standard MIDI file.
type Song struct {
	Resolution int
	Tempo      float64 // first tempo change, 0 if none
	Tracks     []FileTrack
}

// FileTrack is one file track in delta time, meta messages included.
type FileTrack struct {
	Name   string
	Events []DeltaEvent
}

// ReadFile decodes a standard MIDI file.
func ReadFile(path string) (*Song, error) {
	rd, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	song := &Song{Resolution: DefaultResolution}
	if mt, ok := rd.TimeFormat.(smf.MetricTicks); ok {
		song.Resolution = int(mt)
	}
	if tc := rd.TempoChanges(); len(tc) > 0 {
		song.Tempo = tc[0].BPM
	}
	for _, tr := range rd.Tracks {
		ft := FileTrack{Events: make([]DeltaEvent, 0, len(tr))}
		for _, ev := range tr {
			var name string
			if ft.Name == "" && ev.Message.GetMetaTrackName(&name) {
				ft.Name = name
			}
			ft.Events = append(ft.Events, DeltaEvent{Delta: ev.Delta, Msg: []byte(ev.Message)})
		}
		song.Tracks = append(song.Tracks, ft)
	}
	return song, nil
}

// WriteFile encodes tracks into a new file at the given resolution. Each
// track gets a name event first; tracks missing an end-of-track marker are
// closed at their last event.
func WriteFile(path string, resolution int, tracks []FileTrack) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(resolution)
	for i, ft := range tracks {
		var tr smf.Track
		if ft.Name != "" {
			tr.Add(0, smf.MetaTrackSequenceName(ft.Name))
		}
		closed := false
		for _, ev := range ft.Events {
			tr.Add(ev.Delta, ev.Msg)
			closed = Event{Msg: ev.Msg}.IsEndOfTrack()
		}
		if !closed {
			tr.Close(0)
		}
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("add track %d: %w", i, err)
		}
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// TempoTrack is a conductor track holding a single tempo.
func TempoTrack(bpm float64) FileTrack {
	return FileTrack{Events: []DeltaEvent{
		{Msg: []byte(smf.MetaMeter(4, 4))},
		{Msg: []byte(smf.MetaTempo(bpm))},
	}}
}
