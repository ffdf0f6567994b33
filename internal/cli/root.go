// Package cli wires configuration, logging and services into the docrag
// command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/logger"
	"docrag/internal/vectorstore"
)

// app carries state shared by subcommands once the root has loaded config.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.AppConfig
	log *zap.Logger
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "docrag",
		Short:         "Ingest documents into a vector index and probe it",
		Long:          "docrag splits documents into overlapping sentence windows, embeds them in batches\nand replaces a document's rows in a vector index. The query command checks what\nthe index returns for natural-language questions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config (default ./docrag.yaml or ~/.config/docrag/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading credentials")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newIngestCmd(a), newQueryCmd(a), newConfigCmd(a))
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}

	a.log, err = logger.New(a.cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return nil
}

// openBackends builds the configured embedder and index. The returned func
// releases both.
func (a *app) openBackends(ctx context.Context) (domain.Embedder, domain.VectorIndex, func(), error) {
	emb, err := embedding.New(ctx, a.cfg.Embedder)
	if err != nil {
		return nil, nil, nil, err
	}
	index, err := vectorstore.New(a.cfg.VectorStore)
	if err != nil {
		closeQuietly(emb)
		return nil, nil, nil, err
	}
	if err := index.Init(ctx, emb.Dimension()); err != nil {
		closeQuietly(emb)
		_ = index.Close()
		return nil, nil, nil, err
	}
	a.log.Debug("backends ready",
		zap.String("embedder", emb.Name()),
		zap.Int("dimension", emb.Dimension()),
		zap.String("vector_store", a.cfg.VectorStore.Type))
	return emb, index, func() {
		closeQuietly(emb)
		_ = index.Close()
	}, nil
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
