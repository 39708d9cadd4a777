package engines

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/audio"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/hajimehoshi/go-mp3"
	"golang.org/x/time/rate"
)

// gttsAccents are the English accents Google serves from regional domains.
// Voice IDs take the form "lang@tld".
var gttsAccents = []speech.Voice{
	{Name: "Google US English", Lang: "en-US", ID: "en@com"},
	{Name: "Google UK English", Lang: "en-GB", ID: "en@co.uk"},
	{Name: "Google Australian English", Lang: "en-AU", ID: "en@com.au"},
	{Name: "Google Canadian English", Lang: "en-CA", ID: "en@ca"},
	{Name: "Google Indian English", Lang: "en-IN", ID: "en@co.in"},
	{Name: "Google Irish English", Lang: "en-IE", ID: "en@ie"},
	{Name: "Google South African English", Lang: "en-ZA", ID: "en@co.za"},
}

// GTTS synthesizes through gtts-cli. Requests leave the machine, so they
// are rate limited to stay clear of Google's abuse detection.
type GTTS struct {
	binary  string
	limiter *rate.Limiter
}

// NewGTTS checks the binary (default "gtts-cli"). requestsPerMinute
// defaults to 50.
func NewGTTS(binary string, requestsPerMinute int) (*GTTS, error) {
	if binary == "" {
		binary = "gtts-cli"
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 50
	}
	path, err := lookPath(binary)
	if err != nil {
		return nil, err
	}
	return &GTTS{
		binary:  path,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}, nil
}

// Synthesize implements speech.Synthesizer. Rate and pitch are ignored;
// the driver reshapes the audio.
func (g *GTTS) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := checkText(req.Text); err != nil {
		return speech.Audio{}, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return speech.Audio{}, ctx.Err()
		}
		return speech.Audio{}, speech.NewError(speech.ErrorCodeRateLimited, "gtts request budget exhausted", err)
	}

	out, err := run(ctx, 30*time.Second, g.binary, gttsArgs(req.Voice), req.Text)
	if err != nil {
		return speech.Audio{}, err
	}
	return decodeMP3(out)
}

func gttsArgs(v speech.Voice) []string {
	lang, tld := "en", "com"
	if id := v.Key(); id != "" {
		l, t, ok := strings.Cut(id, "@")
		lang = l
		if ok {
			tld = t
		}
	}
	// "-" reads the text from stdin
	return []string{"--lang", lang, "--tld", tld, "-"}
}

// decodeMP3 converts gtts output to mono PCM. go-mp3 always yields 16-bit
// stereo.
func decodeMP3(data []byte) (speech.Audio, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "decode mp3", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return speech.Audio{}, speech.NewError(speech.ErrorCodeAudioFormat, "decode mp3", err)
	}
	pcm = pcm[:len(pcm)-len(pcm)%4]
	return speech.Audio{PCM: audio.Downmix(pcm, 2), SampleRate: d.SampleRate()}, nil
}

// Voices implements speech.Synthesizer. The English accents come first,
// followed by every other language gtts-cli reports.
func (g *GTTS) Voices(ctx context.Context) ([]speech.Voice, error) {
	voices := append([]speech.Voice(nil), gttsAccents...)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := run(ctx, 5*time.Second, g.binary, []string{"--all"}, "")
	if err != nil {
		// the accents alone are still usable
		return voices, nil //nolint:nilerr
	}
	return append(voices, parseGTTSLanguages(out)...), nil
}

// parseGTTSLanguages reads "  code: Name" lines from gtts-cli --all.
func parseGTTSLanguages(out []byte) []speech.Voice {
	var voices []speech.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		code, name, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if !ok || code == "" || name == "" || code == "en" {
			continue
		}
		voices = append(voices, speech.Voice{Name: fmt.Sprintf("Google %s", name), Lang: code, ID: code})
	}
	return voices
}

// Info implements speech.Synthesizer.
func (g *GTTS) Info() speech.EngineInfo {
	return speech.EngineInfo{Name: "gtts", Online: true}
}
