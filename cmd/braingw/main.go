// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/AppDist/braingw"
	"github.com/AppDist/braingw/internal/gateway"
	"github.com/AppDist/braingw/internal/ledger"
	"github.com/AppDist/braingw/internal/monitoring"
	"github.com/AppDist/braingw/internal/postgres"
	"github.com/AppDist/braingw/internal/providers"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	cmd := &cli.Command{
		Name:    "braingw",
		Usage:   "AI Operation Gateway operational tooling",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL database connection URL",
				Sources:  cli.EnvVars("DATABASE_URL"),
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("BRAINGW_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "otlp-endpoint",
				Usage:   "OTLP gRPC endpoint for metrics export (disabled when empty)",
				Sources: cli.EnvVars("BRAINGW_OTLP_ENDPOINT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
			},
			{
				Name:  "usage",
				Usage: "Print a usage summary for a tenant and period",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant ID (omit for non-tenant actors)",
					},
					&cli.StringFlag{
						Name:  "period",
						Value: "month",
						Usage: "Summary period: day, week or month",
					},
				},
				Action: runUsage,
			},
			{
				Name:  "generate",
				Usage: "Run one structured generation through the gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Provider adapter: anthropic, openai or google (default anthropic)",
					},
					&cli.StringFlag{
						Name:  "task-type",
						Usage: "Task type, part of the cache key",
						Value: "adhoc",
					},
					&cli.StringFlag{
						Name:  "system",
						Usage: "System prompt",
					},
					&cli.StringFlag{
						Name:     "prompt",
						Usage:    "User prompt",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "schema",
						Usage: "JSON Schema the generated object must conform to",
					},
					&cli.StringFlag{
						Name:  "schema-name",
						Usage: "Name of the schema",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model override for the selected provider",
					},
					&cli.StringFlag{
						Name:     "action",
						Usage:    "Billing action in module:domain:verb form",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant ID (omit for non-tenant actors)",
					},
					&cli.IntFlag{
						Name:  "units",
						Usage: "Billing units for this generation",
						Value: 1,
					},
				},
				Action: runGenerate,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("Failed to run command", "error", err)
		os.Exit(1)
	}
}

func setupLogger(c *cli.Command) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func runMigrate(ctx context.Context, c *cli.Command) error {
	logger := setupLogger(c)
	return postgres.RunMigrations(logger, c.String("database-url"))
}

func runUsage(ctx context.Context, c *cli.Command) error {
	logger := setupLogger(c)

	period, err := ledger.ParsePeriod(c.String("period"))
	if err != nil {
		return err
	}

	var tenantID *string
	if tenant := c.String("tenant"); tenant != "" {
		tenantID = &tenant
	}

	dbPool, err := pgxpool.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	usageRepo, err := postgres.NewUsageRepository(
		postgres.WithUsageRepositoryLogger(logger),
		postgres.WithUsageRepositoryDb(dbPool),
	)
	if err != nil {
		return fmt.Errorf("failed to create usage repository: %w", err)
	}

	usageLedger := ledger.New(usageRepo, ledger.WithLogger(logger))
	summary, err := usageLedger.Summary(ctx, tenantID, period)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runGenerate(ctx context.Context, c *cli.Command) error {
	logger := setupLogger(c)

	dbPool, err := pgxpool.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	usageRepo, err := postgres.NewUsageRepository(
		postgres.WithUsageRepositoryLogger(logger),
		postgres.WithUsageRepositoryDb(dbPool),
	)
	if err != nil {
		return fmt.Errorf("failed to create usage repository: %w", err)
	}
	usageLedger := ledger.New(usageRepo, ledger.WithLogger(logger))

	gatewayOptions := []gateway.Option{gateway.WithLogger(logger)}
	if endpoint := c.String("otlp-endpoint"); endpoint != "" {
		manager, err := monitoring.NewManager(monitoring.Config{
			ServiceName:    "braingw",
			ServiceVersion: version,
			OTLPEndpoint:   endpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		defer func() {
			if err := manager.Shutdown(ctx); err != nil {
				logger.Warn("Failed to shut down metrics exporter", "error", err)
			}
		}()
		gatewayOptions = append(gatewayOptions, gateway.WithMetrics(manager.GetGatewayMetrics()))
	}

	gw := gateway.New([]providers.Provider{
		providers.NewAnthropicProvider(providers.WithAnthropicLogger(logger)),
		providers.NewOpenAIProvider(providers.WithOpenAILogger(logger)),
		providers.NewGoogleProvider(providers.WithGoogleLogger(logger)),
	}, usageLedger, gatewayOptions...)
	defer gw.Close()

	var tenantID *string
	if tenant := c.String("tenant"); tenant != "" {
		tenantID = &tenant
	}

	result := gw.Generate(ctx, gateway.GenerateParams{
		Request: braingw.GenerationRequest{
			TaskType:     c.String("task-type"),
			SystemPrompt: c.String("system"),
			UserPrompt:   c.String("prompt"),
			Schema: braingw.Schema{
				Name:       c.String("schema-name"),
				Definition: json.RawMessage(c.String("schema")),
			},
			Model: c.String("model"),
		},
		Provider: c.String("provider"),
		TenantID: tenantID,
		Action:   c.String("action"),
		Units:    int(c.Int("units")),
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !result.Success {
		return fmt.Errorf("generation failed (%s): %s", result.ErrorKind, result.Message)
	}
	return nil
}
