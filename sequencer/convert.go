package sequencer

import (
	"math"

	"go-looper/midi"
)

// ToAbsolute accumulates delta times into tick offsets from the start of the
// loop, rescaled from the file resolution to the session resolution.
//
// Playback only fires on the exact current position and positions start at
// 1, so a non-meta event landing on tick 0 is moved to tick 1.
func ToAbsolute(events []midi.DeltaEvent, srcResolution, dstResolution int) []midi.Event {
	out := make([]midi.Event, 0, len(events))
	var abs uint64
	for _, ev := range events {
		abs += uint64(ev.Delta)
		tick := scaleTick(abs, srcResolution, dstResolution)
		if tick == 0 && !midi.IsMeta(ev.Msg) {
			tick = 1
		}
		out = append(out, midi.Event{Tick: tick, Msg: ev.Msg})
	}
	return out
}

func scaleTick(abs uint64, src, dst int) int {
	if src <= 0 || dst <= 0 || src == dst {
		return int(abs)
	}
	return int(math.Round(float64(abs) * float64(dst) / float64(src)))
}

// ToDelta converts tick offsets back into file delta times. The first delta
// is the first event's own offset.
func ToDelta(events []midi.Event) []midi.DeltaEvent {
	out := make([]midi.DeltaEvent, 0, len(events))
	prev := 0
	for _, ev := range events {
		d := ev.Tick - prev
		if d < 0 {
			d = 0
		}
		out = append(out, midi.DeltaEvent{Delta: uint32(d), Msg: ev.Msg})
		prev = ev.Tick
	}
	return out
}
