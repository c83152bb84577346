package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Results table - one row per recognized frame
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			num_hands INTEGER NOT NULL DEFAULT 0,
			top_gesture TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_results_top_gesture ON results(top_gesture)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
