package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/perfgov/internal/errors"
)

// InitSchema initializes the database schema for the transition journal
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS transitions (
            id        INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp INTEGER NOT NULL,
            old_level INTEGER NOT NULL,
            new_level INTEGER NOT NULL,
            fps_slow  REAL NOT NULL,
            jitter    REAL NOT NULL
        )
    `)
	if err != nil {
		return errors.New().Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}
