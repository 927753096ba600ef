package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/videodesk-app/videodesk/internal/ui"
	"github.com/videodesk-app/videodesk/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "videodesk",
	Short:   "Small study rooms over WebRTC: 4 seats, a host, and private breakouts",
	Long:    `Videodesk runs 4-seat study rooms on top of a full-mesh WebRTC topology. The coordinator seats participants, designates a host and relays signaling; the desk client connects to a room, raises hands, and follows the host into private two-person sessions.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
