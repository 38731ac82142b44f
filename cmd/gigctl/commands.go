// AngelaMos | 2026
// commands.go

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/gigmarket/internal/auth"
	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/outbox"
	"github.com/carterperez-dev/gigmarket/internal/rbac"
	"github.com/carterperez-dev/gigmarket/internal/settings"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return core.MigrateUp(cfg.Database.URL, a.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return core.MigrateDown(cfg.Database.URL, steps, a.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func keygenCmd() *cobra.Command {
	var privatePath, publicPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the ES256 key pair used to sign access tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s exists, pass --force to overwrite", p)
					}
				}
			}

			for _, p := range []string{privatePath, publicPath} {
				if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
					return fmt.Errorf("create key dir: %w", err)
				}
			}

			if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privatePath, publicPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&privatePath, "private", "keys/private.pem", "private key output path")
	cmd.Flags().StringVar(&publicPath, "public", "keys/public.pem", "public key output path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing keys")

	return cmd
}

func grantRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <user-id> <role>",
		Short: "Grant a role to a user as the system actor",
		Long: "Grant a role to a user as the system actor.\n\nRoles: " +
			strings.Join(rbac.AllRoles, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, db, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			svc := rbac.NewService(rbac.ServiceConfig{DB: db})
			resp, err := svc.AddRole(ctx, "", args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s roles: %s\n", resp.UserID, strings.Join(resp.Roles, ", "))
			return nil
		},
	}
}

func pruneTokensCmd(a *app) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete refresh tokens that expired before the grace window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, db, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			cutoff := time.Now().Add(-grace)
			deleted, err := auth.NewRepository(db.Conn()).DeleteExpired(ctx, cutoff)
			if err != nil {
				return err
			}

			a.logger.Info("pruned refresh tokens", "deleted", deleted, "cutoff", cutoff)
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 24*time.Hour, "keep tokens that expired within this window")
	return cmd
}

func outboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and drain the event outbox",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Relay pending events until the outbox is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, db, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			var events outbox.Publisher = outbox.LogPublisher{Logger: a.logger}
			if cfg.NATS.Enabled {
				conn, err := outbox.ConnectNATS(cfg.NATS.URL, "gigctl", a.logger)
				if err != nil {
					return err
				}
				defer conn.Drain() //nolint:errcheck // flushes on exit
				events = outbox.NewNATSPublisher(conn)
			}

			relay := outbox.NewRelay(outbox.RelayConfig{
				DB:            db,
				Publisher:     events,
				AfterCommit:   settings.NewDispatcher(db, 0, a.logger),
				SubjectPrefix: cfg.NATS.SubjectPrefix,
				Outbox:        cfg.Outbox,
				Logger:        a.logger,
			})

			total := 0
			for {
				n, err := relay.RelayOnce(ctx)
				if err != nil {
					return err
				}
				total += n
				if n == 0 || n < cfg.Outbox.BatchSize {
					break
				}
			}

			a.logger.Info("outbox drained", "published", total)
			return nil
		},
	})

	return cmd
}
