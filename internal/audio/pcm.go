package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// BytesPerSample is the size of one mono 16-bit frame.
const BytesPerSample = 2

// Duration returns how long n bytes of mono 16-bit PCM play at sampleRate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	frames := n / BytesPerSample
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

func samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func encode(s []int16) []byte {
	out := make([]byte, len(s)*BytesPerSample)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// Resample converts mono 16-bit PCM from one rate to another using linear
// interpolation. Declaring the input at a higher rate than it was recorded
// at raises its pitch and shortens it.
func Resample(pcm []byte, from, to int) []byte {
	if from <= 0 || to <= 0 || from == to || len(pcm) < BytesPerSample {
		return pcm
	}

	in := samples(pcm)
	ratio := float64(to) / float64(from)
	n := int(float64(len(in)) * ratio)
	out := make([]int16, n)

	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = clamp16(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac)
	}
	return encode(out)
}

// Downmix averages interleaved 16-bit channels into mono.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	in := samples(pcm)
	frames := len(in) / channels
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(in[f*channels+c])
		}
		out[f] = int16(sum / channels)
	}
	return encode(out)
}

// Scale multiplies every sample by gain, clipping at the int16 range.
func Scale(pcm []byte, gain float64) []byte {
	if gain == 1 {
		return pcm
	}
	in := samples(pcm)
	for i, v := range in {
		in[i] = clamp16(float64(v) * gain)
	}
	return encode(in)
}

// Adjust maps synthesized audio onto the device rate. Pitch is applied by
// declaring the source faster than it is, so the caller must have slowed
// the tempo by the same factor. stretch is an extra tempo factor for
// engines that cannot change speed themselves.
func Adjust(pcm []byte, srcRate, dstRate int, pitch, stretch float64) []byte {
	if pitch <= 0 {
		pitch = 1
	}
	if stretch <= 0 {
		stretch = 1
	}
	declared := int(math.Round(float64(srcRate) * pitch * stretch))
	return Resample(pcm, declared, dstRate)
}
