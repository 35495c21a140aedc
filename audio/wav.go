package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth      = 16
	wavFormatPCM  = 1
	sampleMaxBits = 16
)

// ReadWAV decodes a PCM WAV file into 16-bit interleaved samples.
func ReadWAV(path string) ([]int16, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Format{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, Format{}, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("decode %s: %w", path, err)
	}

	format := Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}
	return toInt16(buf.Data, buf.SourceBitDepth), format, nil
}

// toInt16 rescales decoded integer samples to 16 bits. 8-bit WAV data is
// unsigned.
func toInt16(data []int, depth int) []int16 {
	out := make([]int16, len(data))
	for i, v := range data {
		switch {
		case depth == 8:
			v = (v - 128) << 8
		case depth > sampleMaxBits:
			v >>= depth - sampleMaxBits
		}
		out[i] = int16(v)
	}
	return out
}

// WriteWAV encodes 16-bit interleaved samples as a PCM WAV file.
func WriteWAV(path string, samples []int16, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, format.SampleRate, bitDepth, format.Channels, wavFormatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	return f.Close()
}
