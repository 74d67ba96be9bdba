package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/foundry/ringserver/internal/config"
	"github.com/foundry/ringserver/internal/debugsrv"
	"github.com/foundry/ringserver/internal/dispatcher"
	"github.com/foundry/ringserver/internal/logging"
)

var (
	configPath string
	logDir     string
	debugFlag  bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configPath, "config", "config.toml", "path to the TOML config file")
	serveCmd.Flags().StringVar(&logDir, "log-dir", "logs", "directory for the rotating log file")
	serveCmd.Flags().BoolVar(&debugFlag, "debug", false, "override config.toml's debug flag")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatcher and accept connections",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugFlag
	}

	log := logging.New(cfg.Debug, logDir)

	if cfg.Debug {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.DebugPort)
			log.Info().Str("addr", addr).Msg("debug server listening")
			if err := http.ListenAndServe(addr, debugsrv.Handler()); err != nil {
				log.Error().Err(err).Msg("debug server stopped")
			}
		}()
	}

	d := dispatcher.New(cfg.Server, logging.Component(log, "dispatcher"))
	return d.Run()
}
