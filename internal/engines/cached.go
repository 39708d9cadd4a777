package engines

import (
	"context"
	"encoding/binary"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/cache"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// Cached serves repeated requests from a cache.Manager.
type Cached struct {
	speech.Synthesizer
	cache *cache.Manager
}

// WithCache wraps s so identical requests are synthesized once.
func WithCache(s speech.Synthesizer, m *cache.Manager) *Cached {
	return &Cached{Synthesizer: s, cache: m}
}

// Synthesize implements speech.Synthesizer.
func (c *Cached) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	key := cache.Key(c.Info().Name, req.Text, req.Voice.Key(), req.Rate, req.Pitch)

	if data, ok := c.cache.Get(key); ok {
		if a, ok := unpackAudio(data); ok {
			log.Debug("synthesis cache hit", "key", key)
			return a, nil
		}
		c.cache.Delete(key)
	}

	a, err := c.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		return a, err
	}
	if err := c.cache.Put(key, packAudio(a)); err != nil {
		log.Warn("unable to cache synthesized audio", "error", err)
	}
	return a, nil
}

// packAudio prefixes the PCM with its sample rate.
func packAudio(a speech.Audio) []byte {
	out := make([]byte, 4, 4+len(a.PCM))
	binary.LittleEndian.PutUint32(out, uint32(a.SampleRate))
	return append(out, a.PCM...)
}

func unpackAudio(data []byte) (speech.Audio, bool) {
	if len(data) < 4 {
		return speech.Audio{}, false
	}
	rate := int(binary.LittleEndian.Uint32(data))
	if rate <= 0 {
		return speech.Audio{}, false
	}
	return speech.Audio{PCM: data[4:], SampleRate: rate}, true
}
