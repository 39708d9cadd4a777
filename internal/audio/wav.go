package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

type fmtChunk struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// DecodeWAV reads a 16-bit PCM WAV file and returns it as mono audio.
// espeak-ng writes a streaming header with bogus sizes, so the data chunk
// length is trusted only when it fits the input.
func DecodeWAV(data []byte) (speech.Audio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "decode wav", errNotWAV)
	}

	r := bytes.NewReader(data[12:])
	var format *fmtChunk

	for {
		var id [4]byte
		var size uint32
		if _, err := io.ReadFull(r, id[:]); err != nil {
			break
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			break
		}

		switch string(id[:]) {
		case "fmt ":
			var f fmtChunk
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "read fmt chunk", err)
			}
			if rest := int64(size) - 16; rest > 0 {
				_, _ = r.Seek(rest, io.SeekCurrent)
			}
			format = &f
		case "data":
			if format == nil {
				return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "data before fmt chunk", errNotWAV)
			}
			if format.AudioFormat != 1 || format.BitsPerSample != 16 {
				return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat,
					fmt.Sprintf("unsupported wav encoding %d/%d-bit", format.AudioFormat, format.BitsPerSample), nil)
			}
			n := int(size)
			if n <= 0 || n > r.Len() {
				n = r.Len()
			}
			pcm := make([]byte, n)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "read data chunk", err)
			}
			pcm = pcm[:len(pcm)-len(pcm)%(2*int(format.Channels))]
			return speech.Audio{
				PCM:        Downmix(pcm, int(format.Channels)),
				SampleRate: int(format.SampleRate),
			}, nil
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "skip chunk", err)
			}
		}
	}

	return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "missing data chunk", errNotWAV)
}

// EncodeWAV wraps mono 16-bit PCM in a WAV header.
func EncodeWAV(a speech.Audio) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(a.PCM)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, fmtChunk{
		AudioFormat:   1,
		Channels:      1,
		SampleRate:    uint32(a.SampleRate),
		ByteRate:      uint32(a.SampleRate * BytesPerSample),
		BlockAlign:    BytesPerSample,
		BitsPerSample: 16,
	})
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(a.PCM)))
	buf.Write(a.PCM)
	return buf.Bytes()
}
