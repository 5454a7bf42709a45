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

	"github.com/Kelony11/image-finder/internal/model"
)

// FileName is the name of the SQLite file inside the database directory.
const FileName = "imagefinder.db"

// timestampLayout is how times are written to the database. It is fixed-width
// UTC so that lexical order equals chronological order.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// HarvestDB provides SQLite-based storage for harvests.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for every seed rather
// than separate files per site. This keeps reverse lookups such as
// "which crawls found this image" a single query.
type HarvestDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HarvestDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HarvestDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*HarvestDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HarvestDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HarvestDB) Close() error {
	return hdb.db.Close()
}

// Path returns the path of the database file.
func (hdb *HarvestDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HarvestDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS harvests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		seed TEXT NOT NULL,
		host TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_visited INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		image_count INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		harvest_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_harvests_seed ON harvests(seed);
	CREATE INDEX IF NOT EXISTS idx_harvests_started ON harvests(started_at);

	-- Image URLs discovered by each run
	CREATE TABLE IF NOT EXISTS harvest_images (
		harvest_id INTEGER NOT NULL REFERENCES harvests(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		PRIMARY KEY (harvest_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_images_url ON harvest_images(url);

	-- Pages dispatched by each run
	CREATE TABLE IF NOT EXISTS harvest_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		harvest_id INTEGER NOT NULL REFERENCES harvests(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status TEXT NOT NULL,
		title TEXT,
		images INTEGER NOT NULL,
		links INTEGER NOT NULL,
		error TEXT,
		elapsed_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_harvest ON harvest_pages(harvest_id);
	`

	_, err := hdb.db.ExecContext(ctx, schema)
	return err
}

// SeedKey returns the key a harvest is stored under: the normalized seed
// when available, otherwise the seed as given.
func SeedKey(h *model.Harvest) string {
	if h.NormalizedSeed != "" {
		return h.NormalizedSeed
	}
	return h.Seed
}

// SaveHarvest stores a complete harvest and returns its database ID.
// The harvest row, its images and its page records are written in one
// transaction.
func (hdb *HarvestDB) SaveHarvest(ctx context.Context, h *model.Harvest) (id int64, err error) {
	if h == nil {
		return 0, ErrNilHarvest
	}

	harvestJSON, err := json.Marshal(h)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize harvest: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO harvests (run_id, seed, host, started_at, finished_at,
		pages_visited, pages_failed, image_count, fingerprint, harvest_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		h.RunID,
		SeedKey(h),
		h.RootHost,
		formatTimestamp(h.StartedAt),
		formatTimestamp(h.FinishedAt),
		h.Visited,
		h.CountPages(model.PageFailed),
		h.ImageCount(),
		h.Fingerprint(),
		string(harvestJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert harvest: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read harvest id: %w", err)
	}

	imageStmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO harvest_images (harvest_id, url) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare image insert: %w", err)
	}
	defer imageStmt.Close()

	for _, img := range h.Images.Slice() {
		if _, err = imageStmt.ExecContext(ctx, id, img); err != nil {
			return 0, fmt.Errorf("failed to insert image: %w", err)
		}
	}

	pageStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO harvest_pages (harvest_id, url, depth, status, title, images, links, error, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	for _, p := range h.Pages {
		if _, err = pageStmt.ExecContext(ctx, id,
			p.URL, p.Depth, string(p.Status), p.Title, p.Images, p.Links, p.Error,
			p.Elapsed.Milliseconds(),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit harvest: %w", err)
	}
	return id, nil
}

// GetLatestHarvest retrieves the most recent harvest for a seed.
// It returns nil without error when the seed has never been crawled.
func (hdb *HarvestDB) GetLatestHarvest(ctx context.Context, seed string) (*model.Harvest, error) {
	query := `
	SELECT harvest_json FROM harvests
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`

	return hdb.loadHarvest(ctx, query, seed)
}

// GetHarvestByID retrieves a harvest by its database ID.
// It returns nil without error when no such harvest exists.
func (hdb *HarvestDB) GetHarvestByID(ctx context.Context, id int64) (*model.Harvest, error) {
	return hdb.loadHarvest(ctx, "SELECT harvest_json FROM harvests WHERE id = ?", id)
}

func (hdb *HarvestDB) loadHarvest(ctx context.Context, query string, args ...any) (*model.Harvest, error) {
	var harvestJSON string
	err := hdb.db.QueryRowContext(ctx, query, args...).Scan(&harvestJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest: %w", err)
	}

	var h model.Harvest
	if err := json.Unmarshal([]byte(harvestJSON), &h); err != nil {
		return nil, fmt.Errorf("failed to parse harvest: %w", err)
	}
	if h.Images == nil {
		h.Images = model.NewURLSet()
	}
	return &h, nil
}

// GetHarvestHistory retrieves all harvests for a seed, newest first.
func (hdb *HarvestDB) GetHarvestHistory(ctx context.Context, seed string) ([]*model.Harvest, error) {
	query := `
	SELECT harvest_json FROM harvests
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest history: %w", err)
	}
	defer rows.Close()

	harvests := make([]*model.Harvest, 0)
	for rows.Next() {
		var harvestJSON string
		if err := rows.Scan(&harvestJSON); err != nil {
			return nil, fmt.Errorf("failed to scan harvest: %w", err)
		}

		var h model.Harvest
		if err := json.Unmarshal([]byte(harvestJSON), &h); err != nil {
			continue // Skip malformed rows
		}
		harvests = append(harvests, &h)
	}

	return harvests, rows.Err()
}

// GetHarvestHistoryWithMetadata retrieves harvest summaries for a seed,
// newest first. This is cheaper than GetHarvestHistory when only the
// counters are needed.
func (hdb *HarvestDB) GetHarvestHistoryWithMetadata(ctx context.Context, seed string) ([]model.HarvestSummary, error) {
	query := `
	SELECT id, run_id, seed, started_at, pages_visited, pages_failed, image_count, fingerprint
	FROM harvests
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	`

	return hdb.querySummaries(ctx, query, seed)
}

// FindHarvestsWithImage returns summaries of every harvest that discovered
// the given image URL, newest first.
func (hdb *HarvestDB) FindHarvestsWithImage(ctx context.Context, imageURL string) ([]model.HarvestSummary, error) {
	query := `
	SELECT h.id, h.run_id, h.seed, h.started_at, h.pages_visited, h.pages_failed, h.image_count, h.fingerprint
	FROM harvests h
	JOIN harvest_images i ON i.harvest_id = h.id
	WHERE i.url = ?
	ORDER BY h.started_at DESC, h.id DESC
	`

	return hdb.querySummaries(ctx, query, imageURL)
}

func (hdb *HarvestDB) querySummaries(ctx context.Context, query string, args ...any) ([]model.HarvestSummary, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvests: %w", err)
	}
	defer rows.Close()

	results := make([]model.HarvestSummary, 0)
	for rows.Next() {
		var s model.HarvestSummary
		var startedAt string

		if err := rows.Scan(&s.ID, &s.RunID, &s.Seed, &startedAt,
			&s.PagesVisited, &s.PagesFailed, &s.ImageCount, &s.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}

		s.StartedAt = parseTimestamp(startedAt)
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetHarvestPages returns the page records of a harvest in the order they
// were stored.
func (hdb *HarvestDB) GetHarvestPages(ctx context.Context, harvestID int64) ([]model.PageRecord, error) {
	query := `
	SELECT url, depth, status, title, images, links, error, elapsed_ms
	FROM harvest_pages
	WHERE harvest_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, harvestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.PageRecord, 0)
	for rows.Next() {
		var p model.PageRecord
		var status string
		var title, errText sql.NullString
		var elapsedMS int64

		if err := rows.Scan(&p.URL, &p.Depth, &status, &title,
			&p.Images, &p.Links, &errText, &elapsedMS); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		p.Status = model.PageStatus(status)
		p.Title = title.String
		p.Error = errText.String
		p.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// ListSeeds returns every seed that has at least one stored harvest.
func (hdb *HarvestDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, "SELECT DISTINCT seed FROM harvests ORDER BY seed")
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	seeds := make([]string, 0)
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// formatTimestamp renders t in timestampLayout. The zero time is stored
// as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may appear in the
// database. The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05", // SQLite default datetime format
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
