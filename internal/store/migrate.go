package store

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// migrationLogger routes migrate's progress output to zap.
type migrationLogger struct {
	log *zap.SugaredLogger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimSpace(format), v...)
}

func (l migrationLogger) Verbose() bool {
	return false
}

// Migrate applies or rolls back the embedded schema migrations against a
// postgres:// URL. It opens its own connection so closing the migrator never
// touches a Store's pool.
func Migrate(databaseURL string, dir Direction) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return eris.Wrap(err, "failed to open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return eris.Wrap(err, "failed to create migrate instance")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			zap.L().Warn("closing migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()
	m.Log = migrationLogger{log: zap.S()}

	before, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return eris.Wrap(verr, "failed to read migration version")
	}
	if dirty {
		return eris.Errorf("database schema is dirty at version %d", before)
	}

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return eris.Errorf("unknown migration direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		zap.L().Info("no new migrations to apply", zap.Uint("version", before))
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "migrate %s", dir)
	}

	after, _, _ := m.Version()
	zap.L().Info("migrations applied",
		zap.String("direction", string(dir)),
		zap.Uint("from", before),
		zap.Uint("to", after))
	return nil
}
