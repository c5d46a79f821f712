package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_uploads",
		SQL: `CREATE TABLE IF NOT EXISTS uploads (
  id                UUID        PRIMARY KEY,
  original_filename TEXT        NOT NULL,
  stored_filename   TEXT        NOT NULL UNIQUE,
  extension         TEXT        NOT NULL,
  size              BIGINT      NOT NULL CHECK (size >= 0),
  content_type      TEXT        NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_uploads_extension",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploads_extension ON uploads (extension);`,
	},
	{
		Name: "create_index_uploads_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads (created_at);`,
	},
}

// EnsureMigrated creates the uploads schema unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	start := time.Now()
	log = log.WithField("event_group", "db_migration")
	log.WithField("status", "starting").Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.uploads') IS NOT NULL").Scan(&exists); err != nil {
		log.WithFields(logrus.Fields{
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("db_migration_failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("db_migration_skip")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithFields(logrus.Fields{
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).WithError(err).Error("db_migration_failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Debug("db_migration_step")
	}

	log.WithFields(logrus.Fields{
		"status":      "success",
		"steps":       len(steps),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("db_migration_success")

	return nil
}
