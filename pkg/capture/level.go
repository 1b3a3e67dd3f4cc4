package capture

import (
	"encoding/binary"
	"math"
)

// levelGain and levelMax bound the reported scale factor: silence maps to
// 1.0, a full-scale signal to 1.8.
const (
	levelGain = 0.8
	levelMax  = 1 + levelGain
)

// levelMeter derives a bounded scale factor from 16-bit LE mono PCM frames
// for visual amplitude feedback. It is fed via io.TeeReader alongside the
// recognizer, so it sees exactly the frames being recognized.
type levelMeter struct {
	onLevel func(float64)
	carry   []byte // odd trailing byte between writes
}

func (m *levelMeter) Write(p []byte) (int, error) {
	n := len(p)
	buf := p
	if len(m.carry) > 0 {
		buf = append(m.carry, p...)
		m.carry = nil
	}
	if len(buf)%2 != 0 {
		m.carry = []byte{buf[len(buf)-1]}
		buf = buf[:len(buf)-1]
	}
	if len(buf) >= 2 {
		m.onLevel(Level(buf))
	}
	return n, nil
}

// Level computes the scale factor for one frame of 16-bit LE mono PCM:
// 1 + 0.8 * rms(normalized samples), clamped to [1, 1.8]. Frames shorter
// than one sample report silence.
func Level(frame []byte) float64 {
	samples := len(frame) / 2
	if samples == 0 {
		return 1
	}
	var sum float64
	for i := 0; i < samples*2; i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(frame[i:]))) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(samples))
	scale := 1 + rms*levelGain
	if scale > levelMax {
		scale = levelMax
	}
	return scale
}
