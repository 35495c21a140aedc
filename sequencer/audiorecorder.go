package sequencer

import (
	"errors"
	"fmt"

	"go-looper/debug"
)

// AudioRecorder records an audio input into AudioTracks.
type AudioRecorder struct {
	capture

	device string
	open   OpenAudioInput
	voices VoiceLoader
	in     AudioInput

	pending []int16
	takes   int
}

// NewAudioRecorder creates a recorder. voices may be nil, in which case
// takes are kept but stay silent; pass NoVoices to report a missing output
// device instead.
func NewAudioRecorder(device string, open OpenAudioInput, voices VoiceLoader) *AudioRecorder {
	r := &AudioRecorder{device: device, open: open, voices: voices}
	r.capture = capture{openIn: r.openInput, closeIn: r.release}
	return r
}

func (r *AudioRecorder) Kind() TrackKind { return KindAudio }

func (r *AudioRecorder) openInput() error {
	if r.in != nil {
		return nil
	}
	in, err := r.open(r.device)
	if err != nil {
		return fmt.Errorf("%w: audio input %q: %w", ErrDeviceUnavailable, r.device, err)
	}
	r.in = in
	return nil
}

func (r *AudioRecorder) Update(c *Clock) (Track, error) {
	if !c.JustTicked() {
		return nil, nil
	}
	if r.fires(c) {
		if r.capturing {
			return r.finalize(c)
		}
		r.begin()
		r.pending = r.pending[:0]
		debug.Log("rec", "audio capture started at tick %d", c.AbsoluteTick())
	}
	if r.in == nil {
		return nil, nil
	}
	if !r.capturing {
		r.in.Drain()
		return nil, nil
	}

	r.elapsed++
	r.pending = append(r.pending, r.in.Drain()...)

	if err := r.in.Err(); err != nil {
		t, ferr := r.finalize(c)
		return t, errors.Join(fmt.Errorf("%w: audio input %q: %w", ErrCaptureInterrupted, r.device, err), ferr)
	}
	return nil, nil
}

func (r *AudioRecorder) Stop(c *Clock) (Track, error) {
	if r.stop() {
		return r.finalize(c)
	}
	return nil, nil
}

// finalize trims the take to exactly elapsed ticks of audio so the buffer
// restart at position 1 never overlaps its own tail.
func (r *AudioRecorder) finalize(c *Clock) (Track, error) {
	if r.elapsed == 0 {
		r.capturing = false
		r.pending = nil
		r.release()
		return nil, nil
	}
	format := r.in.Format()
	samples := append(r.pending, r.in.Drain()...)
	if limit := format.SamplesFor(float64(r.elapsed) * c.SecondsPerTick()); len(samples) > limit {
		samples = samples[:limit]
	}
	samples = append([]int16(nil), samples...)
	r.pending = nil
	r.capturing = false
	r.release()

	t, err := NewAudioTrack(fmt.Sprintf("AudioRec %d", r.takes+1), samples, format, r.elapsed, nil, true)
	if err != nil {
		return nil, fmt.Errorf("finalize audio take: %w", err)
	}
	r.takes++
	debug.Log("rec", "audio take %q: %d ticks, %d samples", t.Name(), t.LoopLength(), len(samples))

	if r.voices == nil {
		return t, nil
	}
	v, err := r.voices.Load(samples)
	if err != nil {
		return t, fmt.Errorf("%w: playback for %q: %w", ErrDeviceUnavailable, t.Name(), err)
	}
	t.AttachVoice(v)
	return t, nil
}

func (r *AudioRecorder) release() {
	if r.in == nil {
		return
	}
	closeInput(KindAudio, r.in)
	r.in = nil
}
