package main

import (
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverURL string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beam-peer",
	Short: "Broadcast or watch a live stream through a beam relay",
	Long: `beam-peer speaks the relay's signaling protocol from the command line.
"broadcast" creates a room and negotiates a WebRTC session with every viewer
the relay announces; "watch" joins an existing room and receives the
broadcaster's media. The relay only ferries the negotiation - media flows
directly between the peers.`,
}

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	zlog.Logger = zerolog.New(w).With().Timestamp().Logger()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://localhost:8080/ws", "relay websocket URL")
	rootCmd.AddCommand(broadcastCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		zlog.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
