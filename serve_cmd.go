package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local analysis server",
	Long: paragraph(fmt.Sprintf("\n%s a sentiment analysis server compatible with the endpoint setting. "+
		"It scores text in process, no network access needed.", keyword("Run"))),
	Example: paragraph("sentispeech serve\nsentispeech serve --addr 127.0.0.1:9000"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Options{
			Addr:     viper.GetString("serve.addr"),
			Debug:    viper.GetBool("serve.debug"),
			Analyzer: sentiment.NewAnalyzer(),
		})
		fmt.Fprintf(os.Stderr, "Listening on %s\n", keyword(viper.GetString("serve.addr")))
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("unable to serve: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().Bool("gin-debug", false, "run gin in debug mode")

	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.debug", serveCmd.Flags().Lookup("gin-debug"))

	viper.SetDefault("serve.addr", ":8080")
	viper.SetDefault("serve.debug", false)
}
