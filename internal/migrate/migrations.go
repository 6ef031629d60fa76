// Package migrate applies the embedded SQL migrations for a keepup
// workspace database and keeps a ledger of what it applied.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Status reports where a database stands relative to the embedded set.
type Status struct {
	Version int
	Pending []string
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_version(
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TEXT NOT NULL
);`

func loadMigrations() ([]Migration, error) {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	var migrations []Migration
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := migrationsFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return nil, err
		}
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil {
			return nil, fmt.Errorf("invalid migration filename %s: %w", f.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: v,
			Name:    f.Name(),
			UpSQL:   string(data),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Current reads the ledger and lists embedded migrations not yet applied.
// It creates the ledger table on a fresh database but applies nothing.
func Current(db *sql.DB) (Status, error) {
	if _, err := db.Exec(ledgerDDL); err != nil {
		return Status{}, fmt.Errorf("create schema_version: %w", err)
	}
	var st Status
	if err := db.QueryRow(`SELECT COALESCE(MAX(version),0) FROM schema_version`).Scan(&st.Version); err != nil {
		return Status{}, fmt.Errorf("read schema_version: %w", err)
	}
	migrations, err := loadMigrations()
	if err != nil {
		return Status{}, err
	}
	for _, m := range migrations {
		if m.Version > st.Version {
			st.Pending = append(st.Pending, m.Name)
		}
	}
	return st, nil
}

// Migrate applies every embedded migration above the ledger's high mark,
// all in one transaction. Each applied migration gets its own ledger row
// with a timestamp so `keepup migrate` can show when the schema changed.
func Migrate(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ledgerDDL); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	var current int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version),0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version,name,applied_at) VALUES (?,?,?)`,
			m.Version, m.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		current = m.Version
	}
	return tx.Commit()
}
