// cmd/order-service/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"marketplace/internal/pkg/bootstrap"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/database"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/order/infrastructure"
)

const serviceName = "order-service"

// main 函数是应用的"组装根" (Composition Root)
// 它只负责解析命令行，具体的依赖组装在 wiring.go 中。
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Marketplace order and split-payment settlement service",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.App.ServiceName == "" {
		cfg.App.ServiceName = serviceName
	}
	logger.Init(cfg.App.LogLevel, cfg.App.ServiceName)
	return cfg, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			app, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return bootstrap.StartService(cfg, bootstrap.AppInfo{
				ServiceName:      cfg.App.ServiceName,
				Port:             cfg.App.Port,
				RegisterHandlers: app.registerRoutes,
				Closers:          app.closers,
			})
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the orders, order_items, stores and products tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.App.StorageDriver != "mysql" {
				return errors.Errorf("migrate requires the mysql storage driver, got %q", cfg.App.StorageDriver)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := database.OpenMySQL(ctx, cfg.Infra.MySQL)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := infrastructure.AutoMigrate(ctx, db); err != nil {
				return err
			}
			logger.L().Info().Msg("✅ Migration finished.")
			return nil
		},
	}
}
