package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/internal/config"
	"github.com/aretw0/quire/pkg/adapters/images"
	"github.com/aretw0/quire/pkg/core"
)

var (
	verbose bool
	cfgFile string

	v      = config.New()
	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "A block-structured note editor core",
	Long: `Quire edits notes made of typed blocks (paragraphs, headings, lists,
checklists, dividers, images) and stores them as files, in SQLite or on a
remote quire server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(v, cfgFile)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./quire.yaml)")
	flags.String("vault", ".", "Vault directory, database file or ws:// url")
	flags.String("adapter", config.AdapterFS, "Storage adapter: fs, sqlite or remote")
	flags.String("format", ".md", "File format for new notes (fs)")
	flags.Bool("versioning", false, "Commit every save to git (fs)")
	flags.Bool("read-only", false, "Reject writes")

	for key, name := range map[string]string{
		"vault":      "vault",
		"adapter":    "adapter",
		"format":     "format",
		"versioning": "versioning",
		"read_only":  "read-only",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}
}

// repoOptions maps the configuration to factory options.
func repoOptions() []quire.Option {
	return []quire.Option{
		quire.WithAdapter(cfg.Adapter),
		quire.WithFormat(cfg.Format),
		quire.WithVersioning(cfg.Versioning),
		quire.WithAutoInit(cfg.Versioning),
		quire.WithReadOnly(cfg.ReadOnly),
		quire.WithSystemDir(cfg.SystemDir),
		quire.WithDevSafety(false),
		quire.WithLogger(logger),
	}
}

// openService opens the configured repository.
func openService(ctx context.Context) (*core.Service, error) {
	svc, err := quire.New(ctx, cfg.Vault, repoOptions()...)
	if err != nil {
		return nil, fmt.Errorf("open vault %s: %w", cfg.Vault, err)
	}
	return svc, nil
}

// openWorkspace opens the configured repository and loads every note.
func openWorkspace(ctx context.Context) (*quire.Workspace, error) {
	wc := quire.WorkspaceConfig{
		SyncDelay: cfg.SyncDelay,
		Columns:   cfg.Columns,
		Logger:    logger,
	}
	if dir := cfg.Images(); dir != "" {
		wc.Images = images.NewStore(dir, images.WithLogger(logger))
	}
	ws, err := quire.Open(ctx, cfg.Vault, wc, repoOptions()...)
	if err != nil {
		return nil, fmt.Errorf("open vault %s: %w", cfg.Vault, err)
	}
	return ws, nil
}
