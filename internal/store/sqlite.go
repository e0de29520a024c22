package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/TheLazyLemur/scchost/internal/project"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS bindings (
	directory    TEXT PRIMARY KEY,
	project_name TEXT NOT NULL,
	aux_path     TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// SQLite stores bindings in a sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("bindings path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating bindings directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening bindings database")
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating bindings table")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(dir string) (project.Record, bool, error) {
	rec := project.Record{Directory: dir}
	err := s.db.QueryRow(`SELECT project_name, aux_path FROM bindings WHERE directory = ?`, dir).
		Scan(&rec.ProjectName, &rec.AuxPath)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Record{}, false, nil
	}
	if err != nil {
		return project.Record{}, false, errors.Wrap(err, "querying binding")
	}
	return rec, true, nil
}

func (s *SQLite) Save(rec project.Record) error {
	_, err := s.db.Exec(`INSERT INTO bindings (directory, project_name, aux_path, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(directory) DO UPDATE SET
			project_name = excluded.project_name,
			aux_path = excluded.aux_path,
			updated_at = excluded.updated_at`,
		rec.Directory, rec.ProjectName, rec.AuxPath, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "saving binding")
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
