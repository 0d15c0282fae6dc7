package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/alfredjeanlab/policyconf/internal/config"
	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/form"
	"github.com/alfredjeanlab/policyconf/internal/hooks"
	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/permission"
	"github.com/alfredjeanlab/policyconf/internal/server"
	pcsync "github.com/alfredjeanlab/policyconf/internal/sync"
)

var serveGRPCAddr string

// formDebounce coalesces bursts of editor writes to the form workspace.
const formDebounce = 200 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Serve the configuration panel over HTTP and gRPC",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		logger := log.WithComponent("serve")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Events go to SSE clients and, when configured, to NATS.
		hub := server.NewHub()
		pubs := []events.Publisher{hub}
		if cfg.NATSURL != "" {
			nats, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			pubs = append(pubs, nats)
			logger.Info().Str("nats_url", cfg.NATSURL).Msg("events enabled")
		} else {
			logger.Info().Msg("NATS events disabled (POLICYCONF_NATS_URL not set)")
		}

		// local is set below, before any event can reach the hook.
		var local *localState
		if cfg.HookCommand != "" {
			h := hooks.NewHandler(hookFromConfig(cfg), func(ctx context.Context) (string, error) {
				return local.manager.Output(ctx)
			})
			pubs = append(pubs, h)
			go h.Run(ctx)
			logger.Info().Strs("events", cfg.HookEvents).Msg("hook enabled")
		}

		publisher := events.NewMulti(pubs...)
		defer publisher.Close()

		// The grant request sent over HTTP is the user's consent.
		local, err := openLocal(ctx, cfg, permission.AutoApprove, publisher)
		if err != nil {
			return err
		}
		defer local.Close()

		if err := form.Watch(ctx, local.form, formDebounce); err != nil {
			logger.Warn().Err(err).Str("path", cfg.FormPath).Msg("form workspace is not watched")
		}

		var scheduler *pcsync.Scheduler
		if cfg.BackupEnabled() {
			dests := backupDestinations(ctx, cfg, logger)
			if len(dests) > 0 {
				scheduler = pcsync.NewScheduler(local.store, dests, cfg.BackupInterval, log.WithComponent("backup"))
				scheduler.Start(ctx)
				logger.Info().Dur("interval", cfg.BackupInterval).Msg("backup scheduler started")
			}
		}

		srv := server.New(local.manager, hub)
		httpServer := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(server.HandlerOptions{
				AuthToken: cfg.AuthToken,
				Metrics:   cfg.MetricsEnabled,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cmd.Flags().Changed("grpc-addr") {
			cfg.GRPCAddr = serveGRPCAddr
		}

		errCh := make(chan error, 2)
		var grpcSrv *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
			}
			grpcSrv = srv.NewGRPCServer(cfg.AuthToken)
			go func() {
				logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
				if err := grpcSrv.Serve(lis); err != nil {
					errCh <- err
				}
			}()
		}

		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).
				Bool("auth", cfg.AuthToken != "").
				Str("storage", cfg.StorageURL).
				Msg("HTTP server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			logger.Info().Msg("received signal, shutting down")
		case err := <-errCh:
			return err
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info().Msg("backup scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		hub.Close()
		logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "gRPC listen address (overrides POLICYCONF_GRPC_ADDR; empty disables)")
}

// backupDestinations builds the configured backup destinations. A
// destination that cannot be created is logged and skipped.
func backupDestinations(ctx context.Context, c *config.Config, logger zerolog.Logger) []pcsync.Destination {
	var dests []pcsync.Destination
	if c.BackupS3Bucket != "" {
		d, err := pcsync.NewS3Destination(ctx, c.BackupS3Bucket, c.BackupS3Key, c.BackupS3Region, c.BackupS3Endpoint)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create S3 backup destination")
		} else {
			dests = append(dests, d)
			logger.Info().Str("bucket", c.BackupS3Bucket).Str("key", c.BackupS3Key).Msg("S3 backup destination enabled")
		}
	}
	if c.BackupGitRepo != "" {
		dests = append(dests, pcsync.NewGitDestination(c.BackupGitRepo, c.BackupGitFile, c.BackupGitBranch))
		logger.Info().Str("repo", c.BackupGitRepo).Str("file", c.BackupGitFile).Msg("git backup destination enabled")
	}
	return dests
}
