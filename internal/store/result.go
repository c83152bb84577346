package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gesturebridge/internal/detector"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Result is a recognition result journaled to the database.
type Result struct {
	ID         string
	Source     string
	NumHands   int
	TopGesture string
	Data       *detector.Result
	CreatedAt  time.Time
}

// ResultRepository provides CRUD operations for journaled results.
type ResultRepository struct {
	db *sql.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

// Create inserts a new result into the database. An ID is generated when
// empty; NumHands and TopGesture are derived from Data.
func (r *ResultRepository) Create(res *Result) error {
	if res.Data == nil {
		return errors.New("result has no data")
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.NumHands = res.Data.NumHands()
	res.TopGesture = ""
	if top, ok := res.Data.TopGesture(0); ok {
		res.TopGesture = top.Label
	}
	res.CreatedAt = time.Now()

	data, err := json.Marshal(res.Data)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO results (id, source, num_hands, top_gesture, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.Source, res.NumHands, res.TopGesture, string(data), res.CreatedAt,
	)
	return err
}

// GetByID retrieves a result by its ID.
func (r *ResultRepository) GetByID(id string) (*Result, error) {
	row := r.db.QueryRow(
		`SELECT id, source, num_hands, top_gesture, data, created_at
		 FROM results WHERE id = ?`,
		id,
	)

	res, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// List retrieves the most recent results, newest first. A limit <= 0 returns
// every result.
func (r *ResultRepository) List(limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, source, num_hands, top_gesture, data, created_at
		 FROM results ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

// ListByGesture retrieves results whose top gesture of the first hand matches name.
func (r *ResultRepository) ListByGesture(name string) ([]*Result, error) {
	rows, err := r.db.Query(
		`SELECT id, source, num_hands, top_gesture, data, created_at
		 FROM results WHERE top_gesture = ? ORDER BY created_at DESC, rowid DESC`,
		name,
	)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

// Count returns the number of stored results.
func (r *ResultRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes a result from the database by its ID.
func (r *ResultRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*Result, error) {
	res := &Result{}
	var data string

	if err := row.Scan(&res.ID, &res.Source, &res.NumHands, &res.TopGesture, &data, &res.CreatedAt); err != nil {
		return nil, err
	}

	res.Data = &detector.Result{}
	if err := json.Unmarshal([]byte(data), res.Data); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", res.ID, err)
	}
	return res, nil
}

func collectResults(rows *sql.Rows) ([]*Result, error) {
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
