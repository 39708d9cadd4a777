package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path for the plain report (default "auto")
style: "auto"
# mouse support (TUI-mode only)
mouse: false
# word-wrap the plain report at width
width: 80

# analysis backend, POSTed {"text": ...}
endpoint: "http://localhost:8080/api/analyze"
# analyse in process instead of calling the endpoint
local: false
# poll a sleeping backend until it answers before analysing
wait_ready: true

# speech engine: espeak, piper, gtts or tone
engine: "espeak"
# preferred voice name, empty picks the best English voice
voice: ""
# base speaking rate, 0.5 to 2.0
rate: 1.0
# shape rate, pitch and volume by sentiment
emotion: true
# pause between paragraphs
settle: "250ms"
# keep the rest of the queue when voice or rate change mid-paragraph
resume_remaining: false

espeak:
  binary: "espeak-ng"

piper:
  binary: "piper"
  # model: "~/.local/share/piper/en_US-lessac-medium.onnx"

gtts:
  binary: "gtts-cli"
  requests_per_minute: 50

# synthesized audio cache
cache:
  # dir: "~/.cache/sentispeech/audio"
  memory_mb: 64
  disk_mb: 512
  ttl_days: 7

audio:
  sample_rate: 44100
  buffer_size: 4096

serve:
  addr: ":8080"
  debug: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the sentispeech config file",
	Long:    paragraph(fmt.Sprintf("\n%s the sentispeech config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("sentispeech config\nsentispeech config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Sentispeech", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
