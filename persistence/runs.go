package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/weblurp/pipeline"
)

// Run is one recorded generation run.
type Run struct {
	ID         int64
	Sentence   string
	Stack      string
	Stage      string
	SiteURL    string
	Error      string
	Rounds     int
	Converged  bool
	Stats      pipeline.Stats
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStore keeps run history in a SQLite database so the status command and
// the studio can show what happened across invocations.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (creating if needed) the database at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sentence TEXT NOT NULL,
		stack TEXT NOT NULL,
		stage TEXT,
		site_url TEXT,
		error TEXT,
		repair_rounds INTEGER,
		converged INTEGER,
		stats TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Start records the beginning of a run and returns its id.
func (s *RunStore) Start(sentence, stack string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO runs (sentence, stack, started_at) VALUES (?, ?, ?)`,
		sentence, stack, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Finish records how a run ended. A nil result leaves the outcome columns
// empty; runErr may be nil for a clean run.
func (s *RunStore) Finish(id int64, result *pipeline.Result, runErr error) error {
	var stage, siteURL, statsJSON string
	var rounds int
	var converged bool
	if result != nil {
		stage = string(result.Stage)
		siteURL = result.SiteURL
		rounds = result.Repair.Rounds
		converged = result.Repair.Converged
		data, err := json.Marshal(result.Stats)
		if err != nil {
			return err
		}
		statsJSON = string(data)
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	_, err := s.db.Exec(`UPDATE runs SET stage = ?, site_url = ?, error = ?, repair_rounds = ?, converged = ?, stats = ?, finished_at = ? WHERE id = ?`,
		stage, siteURL, errMsg, rounds, converged, statsJSON, time.Now().UTC(), id)
	return err
}

// Get returns one run by id.
func (s *RunStore) Get(id int64) (*Run, error) {
	row := s.db.QueryRow(`SELECT id, sentence, stack, stage, site_url, error, repair_rounds, converged, stats, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// List returns the most recent runs, newest first. A non-positive limit
// falls back to 20.
func (s *RunStore) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, sentence, stack, stage, site_url, error, repair_rounds, converged, stats, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRun(row *sql.Row) (*Run, error) {
	run := &Run{}
	var stage, siteURL, errMsg, statsJSON sql.NullString
	var rounds sql.NullInt64
	var converged sql.NullBool
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.Sentence, &run.Stack, &stage, &siteURL, &errMsg, &rounds, &converged, &statsJSON,
		&run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("run not found")
	}
	if err != nil {
		return nil, err
	}
	run.Stage = stage.String
	run.SiteURL = siteURL.String
	run.Error = errMsg.String
	run.Rounds = int(rounds.Int64)
	run.Converged = converged.Bool
	if statsJSON.String != "" {
		json.Unmarshal([]byte(statsJSON.String), &run.Stats)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return run, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	results := make([]Run, 0)
	for rows.Next() {
		run := Run{}
		var stage, siteURL, errMsg, statsJSON sql.NullString
		var rounds sql.NullInt64
		var converged sql.NullBool
		var finished sql.NullTime
		err := rows.Scan(&run.ID, &run.Sentence, &run.Stack, &stage, &siteURL, &errMsg, &rounds, &converged, &statsJSON,
			&run.StartedAt, &finished)
		if err != nil {
			return nil, err
		}
		run.Stage = stage.String
		run.SiteURL = siteURL.String
		run.Error = errMsg.String
		run.Rounds = int(rounds.Int64)
		run.Converged = converged.Bool
		if statsJSON.String != "" {
			json.Unmarshal([]byte(statsJSON.String), &run.Stats)
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		results = append(results, run)
	}
	return results, rows.Err()
}
