package sqlstore

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/go-auth-session/sessions/sqlstore/migrations"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
	os.Exit(1)
}

// Migrate applies any pending session_slots migrations bundled with the binary.
func Migrate(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseLogger{logger: logger.With().Str("component", "goose").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("migrate: goose up: %w", err)
	}
	return nil
}
