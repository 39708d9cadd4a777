package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/engines"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/dgnsrekt/sentispeech/internal/voice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const voicesTimeout = 15 * time.Second

var voicesCmd = &cobra.Command{
	Use:     "voices",
	Short:   "List the voices of the speech engine",
	Long:    paragraph(fmt.Sprintf("\n%s the voices the configured engine offers, English first. The voice that would be used is marked with *.", keyword("List"))),
	Example: paragraph("sentispeech voices\nsentispeech voices --engine piper"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		synth, err := engines.New(viper.GetString("engine"), engineConfig(nil))
		if err != nil {
			return err //nolint:wrapcheck
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), voicesTimeout)
		defer cancel()
		voices, err := synth.Voices(ctx)
		if err != nil {
			return fmt.Errorf("unable to list voices: %w", err)
		}
		return printVoices(os.Stdout, voices, speech.Voice{Name: viper.GetString("voice")})
	},
}

func printVoices(w io.Writer, voices []speech.Voice, wanted speech.Voice) error {
	voices = voice.Partition(voices)
	if len(voices) == 0 {
		_, err := fmt.Fprintln(w, "No voices found.")
		return err //nolint:wrapcheck
	}

	selected, _ := voice.Resolve(voices, wanted)
	for _, v := range voices {
		mark := " "
		name := v.Name
		if v.Key() == selected.Key() {
			mark = "*"
			name = keyword(name)
		}
		if _, err := fmt.Fprintf(w, "%s %s (%s)\n", mark, name, v.Lang); err != nil {
			return err //nolint:wrapcheck
		}
	}
	return nil
}
