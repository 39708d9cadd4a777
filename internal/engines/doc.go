// Package engines provides speech synthesizers built on local TTS tools.
//
// Each engine runs a fresh subprocess per request with its input written
// up front on stdin, and converts whatever the tool emits into mono 16-bit
// PCM:
//
//   - espeak: espeak-ng, WAV on stdout, native rate and pitch
//   - piper: neural voices, raw PCM, native rate only
//   - gtts: Google Translate TTS via gtts-cli, MP3 decoded in process
//   - tone: a beep generator for demos and tests
//
// Engines never touch the audio device; driver.Synth owns playback.
package engines
