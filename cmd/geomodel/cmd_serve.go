package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"geo-tools/cmd/geomodel/server"
	"geo-tools/pkg/logger"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: "Serve parsing, validation, transformation, storage and (when an API key\n" +
		"is configured) generation over HTTP until interrupted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			settings.Addr = addr
		}
		noDB, _ := cmd.Flags().GetBool("no-db")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps := server.Deps{
			BodyLimit:  settings.BodyLimit,
			Extent:     settings.Model.Extent,
			Resolution: settings.Model.Resolution,
		}
		if !noDB {
			repo, closeRepo, err := openRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()
			deps.Repo = repo
		}
		if gen, err := newGenerator(); err == nil {
			deps.Generator = gen
		} else {
			logger.Warn("generation disabled", "err", err)
		}

		return server.New(deps).Run(ctx, settings.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: from settings, :8080)")
	serveCmd.Flags().Bool("no-db", false, "run without storage; storage routes answer 503")
}
