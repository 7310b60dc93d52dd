package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"asset-reservation-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		gormDB, err := db.Init(&cfg.Database, logger)
		if err != nil {
			return errors.Wrap(err, "failed to migrate database")
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return errors.Wrap(err, "failed to get sql.DB")
		}
		return sqlDB.Close()
	},
}
