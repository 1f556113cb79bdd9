package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/casehall-backend/internal/app"
	"github.com/yungbote/casehall-backend/internal/data/db"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	log, err := app.NewLogger()
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	rootCmd := &cobra.Command{
		Use:           "casehall",
		Short:         "Case hall matching and bid lifecycle backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(log))
	rootCmd.AddCommand(migrateCmd(log))
	rootCmd.AddCommand(consistencyCmd(log))
	rootCmd.AddCommand(rankingConfigCmd(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Start(ctx); err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}

func migrateCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		RunE: func(_ *cobra.Command, _ []string) error {
			pg, err := db.NewPostgresService(log, db.PostgresConfigFromEnv())
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := db.AutoMigrateAll(pg.DB()); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			log.Info("migration complete")
			return nil
		},
	}
}

func consistencyCmd(log *logger.Logger) *cobra.Command {
	var limit int
	var failOnDrift bool
	cmd := &cobra.Command{
		Use:   "consistency-check",
		Short: "Report cases whose selected bid disagrees with bid state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.CheckSelectionConsistency(cmd.Context(), limit)
			if err != nil {
				return err
			}
			log.Info("consistency check finished", "drift", n)
			if n > 0 && failOnDrift {
				return fmt.Errorf("%d cases with selection drift", n)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum cases to report")
	cmd.Flags().BoolVar(&failOnDrift, "fail", false, "exit non-zero when drift is found")
	return cmd
}

func rankingConfigCmd(log *logger.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "ranking-config",
		Short: "Inspect or replace ranking configuration documents",
	}

	var actor string
	apply := &cobra.Command{
		Use:   "apply <feed-key> <file>",
		Short: "Validate and store a YAML or JSON document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.ReadConfigDocument(args[1])
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer a.Close()
			row, err := a.Services.RankingConfig.Apply(cmd.Context(), args[0], doc, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s at %s\n", row.FeedKey, row.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	apply.Flags().StringVar(&actor, "actor", "cli", "recorded as updated_by")

	show := &cobra.Command{
		Use:   "show <feed-key>",
		Short: "Print the stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer a.Close()
			row, err := a.Services.RankingConfig.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("no document stored for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(row.Document))
			return nil
		},
	}

	root.AddCommand(apply, show)
	return root
}
