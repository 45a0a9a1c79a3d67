package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/blobstore"
	"github.com/acoeffic/readon/internal/config"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/logging"
	"github.com/acoeffic/readon/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lexday",
	Short: "LexDay media renderer and backend",
	Long: `lexday renders the shareable LexDay videos (reading sessions, finished
books, monthly and yearly wrapped) and runs the backend handlers behind the
app: the Muse chat, the RevenueCat webhook, streak reminders, badge cards,
Kindle imports and the home-screen widget.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.Render.BuildVersion = version
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lexday.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(compositionsCmd, propsCmd, renderCmd, stillCmd)
	rootCmd.AddCommand(serveCmd, remindCmd, tokenCmd)
	rootCmd.AddCommand(badgeCmd, kindleCmd, widgetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// --- Shared wiring ---

func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func openBucket() (*blobstore.DirBucket, error) {
	base := strings.TrimSuffix(cfg.Server.PublicBaseURL, "/") + cfg.Storage.PublicURL
	return blobstore.NewDirBucket(cfg.Storage.Root, cfg.Storage.Bucket, base)
}

func newFonts() *fonts.Registry {
	return fonts.New(fonts.Options{
		CacheDir: cfg.Render.FontCacheDir,
		Timeout:  cfg.Render.FontTimeout,
		Logger:   logger,
	})
}
