package sequencer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"go-looper/audio"
	"go-looper/midi"
)

const timestampLayout = "2006-01-02_15-04-05"

// RecordedTrackName names every recorded track inside a saved file.
const RecordedTrackName = "MidiRecord"

// SaveJob is everything needed to write the session's takes. It is built on
// the polling goroutine and written from another; track payloads are never
// mutated after creation, so sharing them is safe.
type SaveJob struct {
	Resolution int
	Tempo      float64

	// Loaded holds the loaded file's tracks when they can be copied as-is.
	Loaded []midi.FileTrack
	MIDI   [][]midi.Event
	Audio  []AudioTake
}

// AudioTake is one recorded audio buffer
type AudioTake struct {
	Name    string
	Samples []int16
	Format  audio.Format
}

// Empty reports whether there is no recorded take to write.
func (j SaveJob) Empty() bool {
	return len(j.MIDI) == 0 && len(j.Audio) == 0
}

// NewSaveJob collects the recorded takes. The loaded song's tracks are
// carried over verbatim only if its resolution matches the session, since
// their delta times would otherwise be read at the wrong scale.
func NewSaveJob(s *Session, song *midi.Song) SaveJob {
	job := SaveJob{Resolution: s.TicksPerBeat(), Tempo: s.Tempo()}
	if song != nil && song.Resolution == s.TicksPerBeat() {
		for _, ft := range song.Tracks {
			// the name is already among the events
			job.Loaded = append(job.Loaded, midi.FileTrack{Events: ft.Events})
		}
	}
	for _, t := range s.RecordedTracks() {
		switch t := t.(type) {
		case *MidiTrack:
			job.MIDI = append(job.MIDI, t.Events())
		case *AudioTrack:
			job.Audio = append(job.Audio, AudioTake{Name: t.Name(), Samples: t.Samples(), Format: t.Format()})
		}
	}
	return job
}

// TakeStore writes takes under fixed directories with collision-resistant
// names.
type TakeStore struct {
	MIDIDir  string
	AudioDir string

	Now func() time.Time
}

func NewTakeStore(midiDir, audioDir string) *TakeStore {
	return &TakeStore{MIDIDir: midiDir, AudioDir: audioDir, Now: time.Now}
}

// SaveResult lists the files written
type SaveResult struct {
	MIDIFile   string
	AudioFiles []string
}

// fileName is a sortable timestamp plus a short random suffix.
func (st *TakeStore) fileName(ext string) string {
	return st.Now().Format(timestampLayout) + "_" + uuid.NewString()[:8] + ext
}

// Save writes one MIDI file with every MIDI take and one WAV per audio
// take. Nothing is written when there are no takes.
func (st *TakeStore) Save(job SaveJob) (SaveResult, error) {
	var res SaveResult
	var errs []error

	if len(job.MIDI) > 0 {
		path, err := st.saveMIDI(job)
		if err != nil {
			errs = append(errs, err)
		}
		res.MIDIFile = path
	}

	if len(job.Audio) > 0 {
		if err := os.MkdirAll(st.AudioDir, 0o755); err != nil {
			return res, errors.Join(append(errs, err)...)
		}
		for _, take := range job.Audio {
			path := filepath.Join(st.AudioDir, st.fileName(".wav"))
			if err := audio.WriteWAV(path, take.Samples, take.Format); err != nil {
				errs = append(errs, fmt.Errorf("save %q: %w", take.Name, err))
				continue
			}
			res.AudioFiles = append(res.AudioFiles, path)
		}
	}
	return res, errors.Join(errs...)
}

func (st *TakeStore) saveMIDI(job SaveJob) (string, error) {
	if err := os.MkdirAll(st.MIDIDir, 0o755); err != nil {
		return "", err
	}
	tracks := job.Loaded
	if tracks == nil {
		tracks = []midi.FileTrack{midi.TempoTrack(job.Tempo)}
	}
	for _, events := range job.MIDI {
		tracks = append(tracks, midi.FileTrack{Name: RecordedTrackName, Events: ToDelta(events)})
	}
	path := filepath.Join(st.MIDIDir, st.fileName(".mid"))
	if err := midi.WriteFile(path, job.Resolution, tracks); err != nil {
		return "", err
	}
	return path, nil
}
