package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frankbria/iris/go/storage"
)

func serveCommand() *cobra.Command {
	var (
		flagRoot string
		flagPort int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run artifacts (screenshots, diffs) over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flagRoot, flagPort)
		},
	}
	cmd.Flags().StringVar(&flagRoot, "root", "iris-artifacts", "Artifact directory to serve")
	cmd.Flags().IntVar(&flagPort, "port", 8642, "Port to listen on")
	return cmd
}

func runServe(root string, port int) error {
	backend, err := storage.NewFileBackend(root)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", storage.Handler(backend))

	addr := fmt.Sprintf(":%d", port)
	zap.S().Infof("serving artifacts from %s on %s", backend.Root(), addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return errors.Wrap(srv.ListenAndServe(), "artifact server")
}
