package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"framegen/internal/server"
	"framegen/pkg/config"
	"framegen/pkg/gallery"
	"framegen/pkg/logger"
	"framegen/pkg/proxy"
)

var (
	// Serve command flags
	servePort  int
	backendURL string
	galleryDir string
	staticDir  string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gallery web server",
	Long: `Serve the web frontend, the gallery API, and the generation proxy.

The server forwards POST /api/generate bodies to the configured image
generation backend and stores accepted results in the gallery directory,
keeping at most the configured number of items.`,
	Example: `  # Serve on the default port with defaults
  framegen serve

  # Custom port and backend
  framegen serve --port 3000 --backend http://gpu-box:8000/generate

  # Store the gallery somewhere else
  framegen serve --gallery-dir /var/lib/framegen/gallery`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on")
	serveCmd.Flags().StringVar(&backendURL, "backend", "", "image generation backend URL")
	serveCmd.Flags().StringVar(&galleryDir, "gallery-dir", "", "gallery storage directory")
	serveCmd.Flags().StringVar(&staticDir, "static-dir", "", "directory of static frontend files")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"port":        servePort,
		"backend":     backendURL,
		"gallery-dir": galleryDir,
		"static-dir":  staticDir,
		"log-level":   logLevel,
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	store, err := gallery.NewStore(cfg.Gallery.Directory, cfg.Gallery.MaxItems, log)
	if err != nil {
		return fmt.Errorf("failed to open gallery: %w", err)
	}

	backend := proxy.New(cfg.Server.BackendEndpoint, cfg.Server.ProxyTimeout, cfg.Server.MaxProxyBody, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, store, backend, log).Start(ctx)
}
