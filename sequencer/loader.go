package sequencer

import (
	"fmt"
	"math"

	"go-looper/audio"
	"go-looper/debug"
	"go-looper/midi"
)

// LoadMIDITracks builds loops from a parsed file. Tracks without any
// playable event (tempo maps, conductor tracks) are skipped; a playable
// track with a bad length is an error.
func LoadMIDITracks(song *midi.Song, resolution int) ([]Track, error) {
	var tracks []Track
	for i, ft := range song.Tracks {
		events := ToAbsolute(ft.Events, song.Resolution, resolution)
		if !hasPlayable(events) {
			debug.Log("load", "skipping track %d %q: no playable events", i, ft.Name)
			continue
		}
		name := ft.Name
		if name == "" {
			name = fmt.Sprintf("Track %d", i+1)
		}
		t, err := NewMidiTrack(name, events, false)
		if err != nil {
			return nil, fmt.Errorf("load track %d %q: %w", i, name, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func hasPlayable(events []midi.Event) bool {
	for _, ev := range events {
		if !ev.IsMeta() {
			return true
		}
	}
	return false
}

// LoopTicks is the number of whole ticks covering d seconds, at least 1.
func LoopTicks(seconds, secondsPerTick float64) int {
	if secondsPerTick <= 0 {
		return 1
	}
	n := int(math.Round(seconds / secondsPerTick))
	if n < 1 {
		return 1
	}
	return n
}

// LoadAudioTrack wraps a decoded file as a loop whose length is the file
// duration in ticks. voices may be nil.
func LoadAudioTrack(name string, samples []int16, format audio.Format, tempo float64, ticksPerBeat int, voices VoiceLoader) (*AudioTrack, error) {
	if tempo <= 0 || ticksPerBeat <= 0 {
		return nil, fmt.Errorf("%w: tempo=%v ticks_per_beat=%d", ErrInvalidClock, tempo, ticksPerBeat)
	}
	spt := 60 / tempo / float64(ticksPerBeat)
	length := LoopTicks(format.Duration(len(samples)).Seconds(), spt)

	var voice Voice
	if voices != nil {
		v, err := voices.Load(samples)
		if err != nil {
			return nil, fmt.Errorf("%w: playback for %q: %w", ErrDeviceUnavailable, name, err)
		}
		voice = v
	}
	return NewAudioTrack(name, samples, format, length, voice, false)
}
