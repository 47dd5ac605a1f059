package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/config"
	"github.com/jmcallister/fleetreport/internal/database"
	"github.com/jmcallister/fleetreport/internal/export"
	"github.com/jmcallister/fleetreport/internal/logging"
	"github.com/jmcallister/fleetreport/internal/repository"
	"github.com/jmcallister/fleetreport/internal/template"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fleetreport: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fleetreport",
		Short:        "FleetReport operational CLI",
		Long:         "FleetReport CLI renders checklist reports locally and manages the report schema.",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newRenderCmd(),
		newMigrateCmd(),
	)
	return cmd
}

// newRenderCmd renders a report to a local PDF without publishing it, which
// is handy for template work and support debugging.
func newRenderCmd() *cobra.Command {
	var (
		reportID   string
		templateID string
		outPath    string
		dataJSON   string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a report to a local PDF file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if reportID == "" {
				return fmt.Errorf("--report is required")
			}

			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			repo := repository.NewReportRepository(pool)

			objects, err := template.NewS3Source(cfg)
			if err != nil {
				return fmt.Errorf("init object storage: %w", err)
			}
			resolver := template.NewResolver(template.ResolverConfig{
				Objects:      objects,
				TemplatesDir: cfg.TemplatesDir,
				DefaultID:    cfg.DefaultTemplateID,
				Logger:       logger,
			})

			req := export.Request{
				ReportID:   export.FlexID(reportID),
				TemplateID: templateID,
			}
			if dataJSON != "" {
				if err := json.Unmarshal([]byte(dataJSON), &req.TemplateData); err != nil {
					return fmt.Errorf("parse --data: %w", err)
				}
			}

			coordinator := export.New(repo, resolver, nil, logger)
			pdf, err := coordinator.Render(ctx, req)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = fmt.Sprintf("report-%s.pdf", reportID)
			}
			if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			logger.Info("report rendered",
				zap.String("report_id", reportID), zap.String("path", outPath))
			return nil
		},
	}
	cmd.Flags().StringVar(&reportID, "report", "", "Report row identifier")
	cmd.Flags().StringVar(&templateID, "template", "", "Template identifier (default template when empty)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default report-<id>.pdf)")
	cmd.Flags().StringVar(&dataJSON, "data", "", "JSON object of template value overrides")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the report tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			logger.Info("schema ready")
			return nil
		},
	}
}

func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
