package ui

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool
	MaxWidth    uint

	// Source file, empty when reading stdin or a URL
	Path string
	// Note shown in the status bar, e.g. the file name
	Note  string
	Watch bool

	// For debugging the UI
	Animate    bool   `env:"SENTISPEECH_ANIMATE"     envDefault:"true"`
	Spinner    string `env:"SENTISPEECH_SPINNER"     envDefault:"dot"`
	ShowScores bool   `env:"SENTISPEECH_SHOW_SCORES" envDefault:"true"`
}
