package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/videodesk-app/videodesk/internal/config"
	"github.com/videodesk-app/videodesk/internal/coordinator"
	"github.com/videodesk-app/videodesk/internal/server"
	"github.com/videodesk-app/videodesk/internal/store"
)

var serveOpts config.Options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session coordinator",
	Long:  `Starts the coordinator: the websocket endpoint that seats participants into 4-slot rooms, designates hosts, relays WebRTC signaling and manages private sessions. Also serves /health and Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveOpts)
		if err != nil {
			return err
		}

		ledger, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open study ledger: %w", err)
		}

		hub := coordinator.NewHub(ledger)
		go hub.Run(context.Background())

		logrus.WithField("addr", cfg.ListenAddr).Info("coordinator listening")
		return http.ListenAndServe(cfg.ListenAddr, server.Router(hub))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.ListenAddr, "listen", "", "address to bind (default :8080)")
	serveCmd.Flags().StringVar(&serveOpts.DBPath, "db", "", "sqlite file for study-time accounting")
	rootCmd.AddCommand(serveCmd)
}
