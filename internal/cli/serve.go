package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/hook"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/refresh"
	"github.com/glorpus-work/pindex/pkg/server"
	"github.com/glorpus-work/pindex/pkg/store"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		host            string
		port            int
		rootDir         string
		allowOverwrite  bool
		fallbackURL     string
		disableFallback bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the package index over HTTP",
		Long: "Scan the package directory, build the catalog and serve the simple index, " +
			"the JSON API and the upload endpoint until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, serveFlags{
				host:            host,
				port:            port,
				rootDir:         rootDir,
				allowOverwrite:  allowOverwrite,
				fallbackURL:     fallbackURL,
				disableFallback: disableFallback,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&rootDir, "root", "", "package directory to serve (overrides config)")
	cmd.Flags().BoolVar(&allowOverwrite, "allow-overwrite", false, "allow uploads to replace existing files")
	cmd.Flags().StringVar(&fallbackURL, "fallback-url", "", "upstream simple index for unknown projects (overrides config)")
	cmd.Flags().BoolVar(&disableFallback, "disable-fallback", false, "answer unknown projects with 404 instead of redirecting upstream")

	return cmd
}

type serveFlags struct {
	host            string
	port            int
	rootDir         string
	allowOverwrite  bool
	fallbackURL     string
	disableFallback bool
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.rootDir != "" {
		cfg.Storage.RootDir = flags.rootDir
	}
	if flags.allowOverwrite {
		cfg.Server.AllowOverwrite = true
	}
	if flags.fallbackURL != "" {
		cfg.Server.FallbackURL = flags.fallbackURL
	}
	if flags.disableFallback {
		cfg.Server.DisableFallback = true
	}

	ctx := cmd.Context()
	storage := store.NewDir(cfg.Storage.RootDir, cfg.Storage.Recursive)
	cat := catalog.New()

	hooks := hook.NewManager()
	if err := hooks.LoadFromFiles(cfg.HookScripts()); err != nil {
		return fmt.Errorf("failed to load hook scripts: %w", err)
	}

	refresher := refresh.New(cat, storage, hooks, refresh.Options{
		Interval:     cfg.Refresh.Interval,
		ManifestPath: cfg.ManifestPath(),
	})
	if err := refresher.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to scan %s: %w", cfg.Storage.RootDir, err)
	}

	if cfg.Refresh.Interval > 0 {
		go func() { _ = refresher.Run(ctx) }()
	}

	logger.Info("serving package index", logrus.Fields{
		"addr": cfg.Addr(),
		"root": cfg.Storage.RootDir,
	})

	srv := server.New(cat, storage, refresher, cfg.Server)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}
