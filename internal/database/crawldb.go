package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/coursecrawl/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "coursecrawl.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB stores crawl runs, their page summaries and their datasets.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// BusyTimeout is how long a statement waits for a lock held by another
	// connection. Zero fails immediately.
	BusyTimeout time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       5 * time.Second,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds())
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_url TEXT NOT NULL,
		first_page INTEGER NOT NULL,
		last_page INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		row_count INTEGER DEFAULT 0,
		fingerprint TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		page_index INTEGER NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER,
		raw_hash TEXT,
		raw_counts TEXT,
		aligned INTEGER DEFAULT 0,
		dropped INTEGER DEFAULT 0,
		error TEXT,
		UNIQUE(run_id, page_index)
	);

	-- NULL cells are missing values.
	CREATE TABLE IF NOT EXISTS courses (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		url TEXT,
		name TEXT,
		product_type TEXT,
		provider TEXT,
		rating REAL,
		rated_by INTEGER,
		enrolled TEXT,
		difficulty TEXT,
		PRIMARY KEY(run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_courses_url ON courses(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one stored crawl.
type Run struct {
	ID          int64     `json:"id"`
	SiteURL     string    `json:"site_url"`
	FirstPage   int       `json:"first_page"`
	LastPage    int       `json:"last_page"`
	Strategy    string    `json:"strategy"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	RowCount    int       `json:"row_count"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Finished reports whether FinishRun was called for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// StartRun inserts a run row and returns its ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, run *Run) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
	INSERT INTO runs (site_url, first_page, last_page, strategy, started_at)
	VALUES (?, ?, ?, ?, ?)
	`
	result, err := cdb.db.ExecContext(ctx, query,
		run.SiteURL,
		run.FirstPage,
		run.LastPage,
		run.Strategy,
		formatTimestamp(run.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// FinishRun records the outcome of a run. A nil dataset or a non-nil runErr
// marks the run failed with zero rows.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, ds *model.Dataset, runErr error) error {
	var (
		rows        int
		fingerprint sql.NullString
		errText     sql.NullString
	)
	if ds != nil && runErr == nil {
		rows = ds.Len()
		fingerprint = sql.NullString{String: ds.Fingerprint(), Valid: true}
	}
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	query := `
	UPDATE runs SET finished_at = ?, row_count = ?, fingerprint = ?, error = ?
	WHERE id = ?
	`
	result, err := cdb.db.ExecContext(ctx, query,
		formatTimestamp(time.Now()),
		rows,
		fingerprint,
		errText,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// SavePage stores a page summary. Saving the same page of a run twice
// replaces the earlier row.
func (cdb *CrawlDB) SavePage(ctx context.Context, runID int64, page model.PageSummary) error {
	counts, err := json.Marshal(page.RawCounts)
	if err != nil {
		return fmt.Errorf("failed to serialize raw counts: %w", err)
	}

	query := `
	INSERT INTO pages (run_id, page_index, url, status_code, raw_hash, raw_counts, aligned, dropped, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, page_index) DO UPDATE SET
		url = excluded.url,
		status_code = excluded.status_code,
		raw_hash = excluded.raw_hash,
		raw_counts = excluded.raw_counts,
		aligned = excluded.aligned,
		dropped = excluded.dropped,
		error = excluded.error
	`
	_, err = cdb.db.ExecContext(ctx, query,
		runID,
		page.Index,
		page.URL,
		page.StatusCode,
		page.Hash,
		string(counts),
		page.Records,
		page.Dropped,
		page.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save page %d: %w", page.Index, err)
	}
	return nil
}

// GetPages returns the page summaries of a run in page order.
func (cdb *CrawlDB) GetPages(ctx context.Context, runID int64) ([]model.PageSummary, error) {
	query := `
	SELECT page_index, url, status_code, raw_hash, raw_counts, aligned, dropped, error
	FROM pages
	WHERE run_id = ?
	ORDER BY page_index
	`
	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.PageSummary, 0)
	for rows.Next() {
		var (
			p      model.PageSummary
			counts string
		)
		if err := rows.Scan(&p.Index, &p.URL, &p.StatusCode, &p.Hash, &counts, &p.Records, &p.Dropped, &p.Error); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if counts != "" {
			if err := json.Unmarshal([]byte(counts), &p.RawCounts); err != nil {
				return nil, fmt.Errorf("failed to parse raw counts of page %d: %w", p.Index, err)
			}
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// SaveDataset stores the records of a run, replacing any stored earlier.
func (cdb *CrawlDB) SaveDataset(ctx context.Context, runID int64, ds *model.Dataset) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM courses WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear courses of run %d: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO courses (run_id, position, url, name, product_type, provider, rating, rated_by, enrolled, difficulty)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare course insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records() {
		args := make([]any, 0, model.NumColumns+2)
		args = append(args, runID, i)
		for _, v := range r.Values() {
			args = append(args, cellArg(v))
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert course %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

// LoadDataset reads the records of a run back into a Dataset.
func (cdb *CrawlDB) LoadDataset(ctx context.Context, runID int64) (*model.Dataset, error) {
	if _, err := cdb.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `
	SELECT url, name, product_type, provider, rating, rated_by, enrolled, difficulty
	FROM courses
	WHERE run_id = ?
	ORDER BY position
	`
	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		cells := make([]sql.NullString, model.NumColumns)
		dest := make([]any, model.NumColumns)
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}

		var r model.Record
		for _, c := range model.Columns() {
			if cells[c].Valid {
				r.Set(c, model.ParseStored(columnKind(c), cells[c].String))
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.NewDataset(records), nil
}

// GetRun returns one run.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID int64) (*Run, error) {
	query := `
	SELECT id, site_url, first_page, last_page, strategy, started_at, finished_at, row_count, fingerprint, error
	FROM runs
	WHERE id = ?
	`
	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, site_url, first_page, last_page, strategy, started_at, finished_at, row_count, fingerprint, error
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		startedAt   string
		finishedAt  sql.NullString
		fingerprint sql.NullString
		errText     sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.SiteURL,
		&run.FirstPage,
		&run.LastPage,
		&run.Strategy,
		&startedAt,
		&finishedAt,
		&run.RowCount,
		&fingerprint,
		&errText,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Fingerprint = fingerprint.String
	run.Error = errText.String
	return &run, nil
}

// cellArg converts a value into its SQL argument. Missing becomes NULL.
func cellArg(v model.Value) any {
	switch v.Kind() {
	case model.KindText:
		s, _ := v.AsText()
		return s
	case model.KindFloat:
		f, _ := v.AsFloat()
		return f
	case model.KindInt:
		i, _ := v.AsInt()
		return i
	default:
		return nil
	}
}

// columnKind returns the kind stored in column c.
func columnKind(c model.Column) model.Kind {
	switch c {
	case model.ColumnRating:
		return model.KindFloat
	case model.ColumnRatedBy:
		return model.KindInt
	default:
		return model.KindText
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time if none
// matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
