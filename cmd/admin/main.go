// Package main provides the operator CLI for database maintenance and exports.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/config"
	"github.com/noah-isme/scolarite-api/internal/database"
	"github.com/noah-isme/scolarite-api/internal/repository"
	"github.com/noah-isme/scolarite-api/internal/service"
)

var (
	exportThreshold float64
	exportOut       string
	importFile      string
	purgeOlderThan  time.Duration
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "scolarite-admin",
		Short:        "Maintenance commands for the scolarite API database",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newPurgeActivityCmd())

	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, err := open()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo students into empty tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.close()

			result, err := deps.seed.SeedDemo(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d graded students, %d absence records, %d students\n",
				result.GradeStudents, result.AbsenceRecords, result.Students)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-blacklist",
		Short: "Write the absence blacklist to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.close()

			var threshold *float64
			if cmd.Flags().Changed("seuil") {
				threshold = &exportThreshold
			}

			workbook, err := deps.absences.ExportBlacklist(cmd.Context(), threshold)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if err := os.WriteFile(exportOut, workbook, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", exportOut, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "blacklist written to %s\n", exportOut)
			return nil
		},
	}

	cmd.Flags().Float64Var(&exportThreshold, "seuil", 0, "threshold as a fraction (0.3) or a percentage (30); defaults to the configured value")
	cmd.Flags().StringVar(&exportOut, "out", "liste-noire.xlsx", "output file")

	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-absences",
		Short: "Import absence records from an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.close()

			file, err := os.Open(importFile)
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := deps.absences.ImportReader(cmd.Context(), service.SystemActor, file)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d, skipped %d\n", result.Imported, result.Skipped)
			for _, rowErr := range result.Errors {
				fmt.Fprintf(out, "row %d: %s\n", rowErr.Row, rowErr.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&importFile, "file", "", "workbook to import")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newPurgeActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge-activity",
		Short: "Delete audit trail entries older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.close()

			purged, err := deps.activity.Purge(cmd.Context(), purgeOlderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d activity entries\n", purged)
			return nil
		},
	}

	cmd.Flags().DurationVar(&purgeOlderThan, "older-than", 90*24*time.Hour, "retention window")

	return cmd
}

type dependencies struct {
	seed     service.SeedService
	absences service.AbsenceService
	activity service.ActivityService
	closers  []func() error
}

func (d dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func open() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}

// wire builds the services against the same backends as the API. When Redis
// is configured, writes drop the API's cached dashboard; when Redis or NATS
// is configured, events reach the API nodes. The audit log records the
// system actor.
func wire(ctx context.Context) (dependencies, error) {
	cfg, db, err := open()
	if err != nil {
		return dependencies{}, err
	}

	deps := dependencies{}
	if sqlDB, err := db.DB(); err == nil {
		deps.closers = append(deps.closers, sqlDB.Close)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL, cfg.AppName+"-admin")
		if err != nil {
			deps.close()
			return dependencies{}, err
		}
		deps.closers = append(deps.closers, redisClient.Close)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName+"-admin")
		if err != nil {
			deps.close()
			return dependencies{}, err
		}
		deps.closers = append(deps.closers, func() error {
			// flush pending events before the process exits
			return natsConn.Drain()
		})
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	validate := validator.New(validator.WithRequiredStructEnabled())

	gradeRepo := repository.NewGradeStudentRepository(db)
	absenceRepo := repository.NewAbsenceRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	events := service.NewEventService(redisClient, cfg.EventsChannel, natsConn, logger)
	dashboard := service.NewDashboardService(gradeRepo, absenceRepo, redisClient, cfg.DashboardCacheTTL, cfg.BlacklistThreshold, logger)
	notifier := service.NewChangeNotifier(activity, events, dashboard, logger)

	deps.activity = activity
	deps.seed = service.NewSeedService(gradeRepo, absenceRepo, studentRepo, dashboard, logger)
	deps.absences = service.NewAbsenceService(absenceRepo, validate, notifier, service.AbsencePolicy{
		Threshold:         cfg.BlacklistThreshold,
		MaxHours:          cfg.AbsenceMaxHours,
		DefaultTotalHours: cfg.AbsenceDefaultTotalHours,
		MaxUploadMB:       cfg.UploadMaxMB,
	}, logger)
	return deps, nil
}
