// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/gigmarket/internal/config"
	"github.com/carterperez-dev/gigmarket/internal/core"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gigctl",
		Short: "Operator tooling for the gigmarket API",
		Long: `Operator tooling for the gigmarket API.

Examples:
  gigctl migrate up
  gigctl migrate down --steps 1
  gigctl keygen --private keys/private.pem --public keys/public.pem
  gigctl grant-role 6f1c...e2 admin
  gigctl prune-tokens
  gigctl outbox drain
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	app := &app{configPath: &configPath}

	cmd.AddCommand(
		migrateCmd(app),
		keygenCmd(),
		grantRoleCmd(app),
		pruneTokensCmd(app),
		outboxCmd(app),
	)

	return cmd
}

// app loads config and connections lazily so keygen works without a
// database.
type app struct {
	configPath *string
	logger     *slog.Logger
}

func (a *app) config() (*config.Config, error) {
	cfg, err := config.Load(*a.configPath)
	if err != nil {
		return nil, err
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return cfg, nil
}

func (a *app) database(ctx context.Context) (*config.Config, *core.Database, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
