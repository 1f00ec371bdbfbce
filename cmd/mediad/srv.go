package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mediad/internal/config"
	"mediad/internal/media"
	"mediad/internal/models"
	"mediad/internal/policy"
	"mediad/internal/server"
	"mediad/internal/storage"
	"mediad/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the mediad API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			backends, err := buildBackends(cfg, logger)
			if err != nil {
				return err
			}

			typePolicy, err := policy.LoadFile(cfg.Limits.TypePolicyFile)
			if err != nil {
				return err
			}

			processor := media.NewProcessor(st, backends, media.Prober{},
				slog.Default().With("component", "processor"),
				media.Options{
					Workers:     cfg.Processing.Workers,
					MaxAttempts: cfg.Processing.MaxAttempts,
					RetryDelay:  time.Duration(cfg.Processing.RetryDelaySeconds) * time.Second,
					QueueSize:   cfg.Processing.QueueSize,
				})
			processor.Start(cmd.Context())
			defer processor.Stop()

			service := server.NewFileService(st, backends, server.FileServiceOptions{
				Policy:              typePolicy,
				Dispatcher:          processor,
				Logger:              logger,
				MaxUploadBytes:      cfg.Limits.MaxUploadBytes,
				AudioMaxUploadBytes: cfg.Limits.AudioMaxUploadBytes,
			})

			srv := server.New(addr, st, service, logger, server.Options{
				DBPath:             cfg.DBPath,
				MultipartMaxMemory: cfg.Limits.MultipartMaxMemory,
				// Leave headroom for multipart framing around the largest
				// allowed payload.
				MaxRequestBytes: cfg.Limits.AudioMaxUploadBytes + cfg.Limits.MultipartMaxMemory,
			})
			return srv.ListenAndServe()
		},
	}
}

func buildBackends(cfg *config.Config, logger *slog.Logger) (map[models.BackendKind]storage.Backend, error) {
	backends := map[models.BackendKind]storage.Backend{}

	local, err := storage.NewLocalDisk(cfg.Storage.LocalRoot, cfg.Storage.LocalBaseURL)
	if err != nil {
		return nil, err
	}
	backends[models.BackendLocal] = local

	if cfg.Storage.RemoteURL != "" {
		remote, err := storage.NewRemoteStore(cfg.Storage.RemoteURL, cfg.Storage.RemoteAPIKey, cfg.Storage.RemoteFolder)
		if err != nil {
			return nil, err
		}
		backends[models.BackendRemote] = remote
	} else {
		logger.Warn("remote store not configured; image and video uploads will be rejected")
	}

	return backends, nil
}
