package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pumpcore/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL and ClickHouse migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "" {
			return errors.New("postgres-dsn and clickhouse-dsn are required")
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		storageCfg := *cfg
		storageCfg.UseMemory = false
		_, closeStores, err := app.OpenStores(cmd.Context(), &storageCfg, logger)
		if err != nil {
			return err
		}
		closeStores()

		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
