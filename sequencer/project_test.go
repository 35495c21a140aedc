package sequencer

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-looper/audio"
	"go-looper/midi"
)

var takeFileName = regexp.MustCompile(`^2024-03-05_14-30-00_[0-9a-f]{8}\.(mid|wav)$`)

func newTestStore(t *testing.T) *TakeStore {
	t.Helper()
	dir := t.TempDir()
	st := NewTakeStore(filepath.Join(dir, "midi"), filepath.Join(dir, "audio"))
	st.Now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }
	return st
}

// sessionWithTakes holds one loaded loop, one MIDI take and one audio take.
func sessionWithTakes(t *testing.T, tpb int) *Session {
	t.Helper()
	s, err := NewSession(Options{Tempo: 120, TicksPerBeat: tpb})
	require.NoError(t, err)

	s.AddTrack(newLoopTrack(t, 8))
	take, err := NewMidiTrack("MidiRec 1", []midi.Event{
		{Tick: 2, Msg: noteOn60},
		{Tick: 3, Msg: noteOff60},
		midi.EndOfTrack(4),
	}, true)
	require.NoError(t, err)
	s.AddTrack(take)

	a, err := NewAudioTrack("AudioRec 1", []int16{0, 100, -100, 32767}, audio.Format{SampleRate: 8000, Channels: 1}, 2, nil, true)
	require.NoError(t, err)
	s.AddTrack(a)
	return s
}

func TestNewSaveJob(t *testing.T) {
	s := sessionWithTakes(t, 96)
	song := &midi.Song{Resolution: 96, Tracks: []midi.FileTrack{
		{Name: "A", Events: []midi.DeltaEvent{{Msg: trackName}, {Delta: 4, Msg: midi.EndOfTrack(0).Msg}}},
	}}

	job := NewSaveJob(s, song)
	assert.False(t, job.Empty())
	assert.Equal(t, 96, job.Resolution)
	assert.Equal(t, 120.0, job.Tempo)
	require.Len(t, job.Loaded, 1)
	assert.Empty(t, job.Loaded[0].Name)
	assert.Equal(t, song.Tracks[0].Events, job.Loaded[0].Events)
	require.Len(t, job.MIDI, 1)
	assert.Len(t, job.MIDI[0], 3)
	require.Len(t, job.Audio, 1)
	assert.Equal(t, "AudioRec 1", job.Audio[0].Name)

	// a song at another resolution is left out
	song.Resolution = 960
	assert.Empty(t, NewSaveJob(s, song).Loaded)
	assert.Empty(t, NewSaveJob(s, nil).Loaded)
}

func TestSaveJobEmpty(t *testing.T) {
	s, err := NewSession(Options{Tempo: 120, TicksPerBeat: 96})
	require.NoError(t, err)
	s.AddTrack(newLoopTrack(t, 4))
	assert.True(t, NewSaveJob(s, nil).Empty())

	st := newTestStore(t)
	res, err := st.Save(SaveJob{})
	require.NoError(t, err)
	assert.Empty(t, res.MIDIFile)
	assert.Empty(t, res.AudioFiles)
	_, err = os.Stat(st.MIDIDir)
	assert.True(t, os.IsNotExist(err))
}

func TestTakeStoreSave(t *testing.T) {
	s := sessionWithTakes(t, 96)
	st := newTestStore(t)

	res, err := st.Save(NewSaveJob(s, nil))
	require.NoError(t, err)
	require.NotEmpty(t, res.MIDIFile)
	require.Len(t, res.AudioFiles, 1)
	assert.Regexp(t, takeFileName, filepath.Base(res.MIDIFile))
	assert.Regexp(t, takeFileName, filepath.Base(res.AudioFiles[0]))
	assert.Equal(t, st.MIDIDir, filepath.Dir(res.MIDIFile))
	assert.Equal(t, st.AudioDir, filepath.Dir(res.AudioFiles[0]))

	song, err := midi.ReadFile(res.MIDIFile)
	require.NoError(t, err)
	assert.Equal(t, 96, song.Resolution)
	assert.InDelta(t, 120.0, song.Tempo, 0.01)

	// tempo track, then the take; the loaded loop is never written
	require.Len(t, song.Tracks, 2)
	assert.Equal(t, RecordedTrackName, song.Tracks[1].Name)

	tracks, err := LoadMIDITracks(song, 96)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 4, tracks[0].LoopLength())
	assert.Contains(t, tracks[0].(*MidiTrack).Events(), midi.Event{Tick: 2, Msg: noteOn60})

	samples, format, err := audio.ReadWAV(res.AudioFiles[0])
	require.NoError(t, err)
	assert.Equal(t, audio.Format{SampleRate: 8000, Channels: 1}, format)
	assert.Equal(t, []int16{0, 100, -100, 32767}, samples)
}

func TestTakeStoreKeepsLoadedTracks(t *testing.T) {
	s := sessionWithTakes(t, 96)
	st := newTestStore(t)
	song := &midi.Song{Resolution: 96, Tracks: []midi.FileTrack{
		{Events: []midi.DeltaEvent{
			{Msg: []byte{0xFF, 0x03, 0x04, 'B', 'a', 's', 's'}},
			{Delta: 1, Msg: noteOn60},
			{Delta: 7, Msg: midi.EndOfTrack(0).Msg},
		}},
	}}

	res, err := st.Save(NewSaveJob(s, song))
	require.NoError(t, err)

	saved, err := midi.ReadFile(res.MIDIFile)
	require.NoError(t, err)
	require.Len(t, saved.Tracks, 2)
	assert.Equal(t, "Bass", saved.Tracks[0].Name)
	assert.Equal(t, RecordedTrackName, saved.Tracks[1].Name)

	tracks, err := LoadMIDITracks(saved, 96)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, 8, tracks[0].LoopLength())
}

func TestTakeStoreNamesDoNotCollide(t *testing.T) {
	st := newTestStore(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := st.fileName(".mid")
		assert.False(t, seen[name], name)
		seen[name] = true
	}
}
