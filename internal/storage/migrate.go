package storage

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

type migration struct {
	Name     string
	Up       string
	Down     string
	Checksum string
}

// MigrateUp applies the embedded migrations that are not yet recorded in
// schema_migrations, oldest first. A recorded migration whose file changed is
// an error.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	applied, err := m.applied()
	if err != nil {
		return err
	}
	for _, mig := range m.all {
		sum, ok := applied[mig.Name]
		if ok {
			if sum != mig.Checksum {
				return fmt.Errorf("migration %s changed after it was applied", mig.Name)
			}
			continue
		}
		if err := m.run(mig.Up, func(tx *sqlx.Tx) error {
			_, err := tx.Exec(tx.Rebind("INSERT INTO "+migrationsTable+" (name, applied_at, checksum) VALUES (?, ?, ?)"),
				mig.Name, time.Now().UTC().Format(time.RFC3339), mig.Checksum)
			return err
		}); err != nil {
			return fmt.Errorf("apply migration %s: %w", mig.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts every applied migration, newest first.
func MigrateDown(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	applied, err := m.applied()
	if err != nil {
		return err
	}
	for _, mig := range slices.Backward(m.all) {
		if _, ok := applied[mig.Name]; !ok {
			continue
		}
		if err := m.run(mig.Down, func(tx *sqlx.Tx) error {
			_, err := tx.Exec(tx.Rebind("DELETE FROM "+migrationsTable+" WHERE name = ?"), mig.Name)
			return err
		}); err != nil {
			return fmt.Errorf("revert migration %s: %w", mig.Name, err)
		}
	}
	return nil
}

// AppliedMigrations lists the recorded migration names in apply order.
func AppliedMigrations(db *sql.DB) ([]string, error) {
	m, err := newMigrator(db)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := m.db.Select(&names, "SELECT name FROM "+migrationsTable+" ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return names, nil
}

type migrator struct {
	db  *sqlx.DB
	all []migration
}

func newMigrator(db *sql.DB) (*migrator, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	x := sqlx.NewDb(db, "sqlite3")
	if _, err := x.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
	name TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL,
	checksum TEXT NOT NULL
)`); err != nil {
		return nil, fmt.Errorf("create %s: %w", migrationsTable, err)
	}
	return &migrator{db: x, all: all}, nil
}

func (m *migrator) applied() (map[string]string, error) {
	var rows []struct {
		Name     string `db:"name"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.Select(&rows, "SELECT name, checksum FROM "+migrationsTable); err != nil {
		return nil, fmt.Errorf("read %s: %w", migrationsTable, err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Checksum
	}
	return out, nil
}

func (m *migrator) run(script string, record func(*sqlx.Tx) error) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func loadMigrations() ([]migration, error) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	slices.Sort(ups)
	out := make([]migration, 0, len(ups))
	for _, path := range ups {
		name := strings.TrimSuffix(strings.TrimPrefix(path, "migrations/"), ".up.sql")
		up, err := migrationFiles.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", path, err)
		}
		down, err := migrationFiles.ReadFile("migrations/" + name + ".down.sql")
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(up)
		out = append(out, migration{
			Name:     name,
			Up:       string(up),
			Down:     string(down),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	return out, nil
}
