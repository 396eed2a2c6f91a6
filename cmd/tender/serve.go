package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tender/internal/certs"
	"github.com/Veraticus/tender/internal/config"
	"github.com/Veraticus/tender/internal/server"
)

func serveCmd() *cobra.Command {
	var useTLS bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the drafting API and announcement previews over HTTP",
		Long: `Serve classification, drafting sessions, template history, and
reconciliation as a JSON API, with HTML previews of drafted announcements.

With --tls a self-signed certificate for localhost and the listen host is
kept next to the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOptional)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}
			reconciler, err := a.reconciler()
			if err != nil {
				return err
			}

			cfg := server.Config{
				Addr:           a.settings.ServerAddr,
				RequestTimeout: viper.GetDuration("server.request_timeout"),
			}
			if useTLS {
				cfg.TLS, err = serverTLS(a.settings)
				if err != nil {
					return err
				}
			}

			srv, err := server.New(cfg, server.Deps{
				Drafting:   engine,
				Classifier: a.classifier,
				Templates:  a.store,
				Thresholds: a.thresholds,
				Reconciler: reconciler,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			slog.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8420)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().BoolVar(&useTLS, "tls", false, "Serve HTTPS with a self-signed certificate")


	return cmd
}

func serverTLS(settings *config.Settings) (*tls.Config, error) {
	host, _, err := net.SplitHostPort(settings.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", settings.ServerAddr, err)
	}
	manager := certs.NewFileManager(certs.Config{
		Dir:   filepath.Join(filepath.Dir(settings.DatabasePath), "certs"),
		Hosts: []string{host},
	})
	return manager.TLSConfig()
}
