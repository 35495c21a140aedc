package audio

import "math"

// Convert remaps interleaved samples from one format to another. Channels
// are averaged down to mono, duplicated up from mono, and otherwise taken
// modulo the source count; the rate is changed by linear interpolation.
func Convert(samples []int16, from, to Format) []int16 {
	if from == to || from.Channels <= 0 || to.Channels <= 0 || from.SampleRate <= 0 || to.SampleRate <= 0 {
		return samples
	}
	frames := from.Frames(len(samples))
	remapped := remapChannels(samples[:frames*from.Channels], frames, from.Channels, to.Channels)
	if from.SampleRate == to.SampleRate {
		return remapped
	}
	return resample(remapped, frames, to.Channels, float64(from.SampleRate)/float64(to.SampleRate))
}

func remapChannels(samples []int16, frames, in, out int) []int16 {
	if in == out {
		return append([]int16(nil), samples...)
	}
	dst := make([]int16, frames*out)
	for f := 0; f < frames; f++ {
		src := samples[f*in : (f+1)*in]
		if out == 1 {
			sum := 0
			for _, s := range src {
				sum += int(s)
			}
			dst[f] = int16(sum / in)
			continue
		}
		for c := 0; c < out; c++ {
			dst[f*out+c] = src[c%in]
		}
	}
	return dst
}

// resample steps through the source at step source frames per output frame.
func resample(samples []int16, frames, channels int, step float64) []int16 {
	if frames == 0 {
		return nil
	}
	n := int(math.Round(float64(frames) / step))
	if n < 1 {
		n = 1
	}
	dst := make([]int16, n*channels)
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= frames {
			i0 = frames - 1
		}
		i1 := i0 + 1
		if i1 >= frames {
			i1 = frames - 1
		}
		frac := pos - float64(i0)
		for c := 0; c < channels; c++ {
			a := float64(samples[i0*channels+c])
			b := float64(samples[i1*channels+c])
			dst[i*channels+c] = int16(math.Round(a + (b-a)*frac))
		}
	}
	return dst
}
