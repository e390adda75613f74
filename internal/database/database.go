// Package database is the optional sqlite durability sink for frames
// and analysis readings. The whole system runs correctly without it;
// every caller treats a nil *Database as "sink absent".
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bridgewatch/internal/analysis"
	"bridgewatch/internal/frame"
)

// Database handles SQLite database operations.
type Database struct {
	db *sql.DB
}

// ReadingRow is a persisted analysis reading.
type ReadingRow struct {
	ID                 string
	Question           string
	QuestionType       string
	Category           string
	Message            string
	LSToSAStatus       string
	LSToSADetail       string
	SAToLSStatus       string
	SAToLSDetail       string
	Summary            string
	Advice             string
	LSToSACount        *int
	SAToLSCount        *int
	TotalCount         *int
	DirectionUncertain bool
	FramesUsed         int
	FrameTime          time.Time
	CreatedAt          time.Time
}

// New opens the database and prepares it for concurrent access.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations.
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS frames (
			id TEXT PRIMARY KEY,
			angle TEXT NOT NULL,
			captured_at DATETIME NOT NULL,
			size_bytes INTEGER NOT NULL,
			data BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			question TEXT,
			question_type TEXT,
			category TEXT,
			message TEXT NOT NULL,
			ls_to_sa_status TEXT,
			ls_to_sa_detail TEXT,
			sa_to_ls_status TEXT,
			sa_to_ls_detail TEXT,
			summary TEXT,
			advice TEXT,
			ls_to_sa_count INTEGER,
			sa_to_ls_count INTEGER,
			total_count INTEGER,
			direction_uncertain INTEGER DEFAULT 0,
			frames_used INTEGER NOT NULL,
			frame_time DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_frames_angle_time ON frames(angle, captured_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_time ON readings(created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveFrame logs a captured frame keyed by angle and capture time.
func (d *Database) SaveFrame(f *frame.Frame) error {
	_, err := d.db.Exec(
		`INSERT INTO frames (id, angle, captured_at, size_bytes, data) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), string(f.Angle), f.CapturedAt, len(f.Data), f.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}
	return nil
}

// SaveReading logs one analysis reading.
func (d *Database) SaveReading(rec *analysis.ReadingRecord) error {
	var lsCount, saCount, totalCount *int
	uncertain := false
	if rec.Counts != nil {
		lsCount = &rec.Counts.LSToSA
		saCount = &rec.Counts.SAToLS
		totalCount = &rec.Counts.Total
		uncertain = rec.Counts.DirectionUncertain
	}

	_, err := d.db.Exec(
		`INSERT INTO readings (
			id, question, question_type, category, message,
			ls_to_sa_status, ls_to_sa_detail, sa_to_ls_status, sa_to_ls_detail,
			summary, advice,
			ls_to_sa_count, sa_to_ls_count, total_count, direction_uncertain,
			frames_used, frame_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), rec.Question, string(rec.QuestionType), string(rec.Category), rec.Message,
		rec.Reading.LSToSAStatus, rec.Reading.LSToSADetail, rec.Reading.SAToLSStatus, rec.Reading.SAToLSDetail,
		rec.Reading.Summary, rec.Reading.Advice,
		lsCount, saCount, totalCount, uncertain,
		rec.FramesUsed, rec.FrameTime, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}
	return nil
}

// RecentReadings returns the latest readings, newest first.
func (d *Database) RecentReadings(limit int) ([]*ReadingRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.Query(
		`SELECT id, question, question_type, category, message,
			ls_to_sa_status, ls_to_sa_detail, sa_to_ls_status, sa_to_ls_detail,
			summary, advice,
			ls_to_sa_count, sa_to_ls_count, total_count, direction_uncertain,
			frames_used, frame_time, created_at
		FROM readings ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []*ReadingRow
	for rows.Next() {
		r := &ReadingRow{}
		var frameTime sql.NullTime
		err := rows.Scan(
			&r.ID, &r.Question, &r.QuestionType, &r.Category, &r.Message,
			&r.LSToSAStatus, &r.LSToSADetail, &r.SAToLSStatus, &r.SAToLSDetail,
			&r.Summary, &r.Advice,
			&r.LSToSACount, &r.SAToLSCount, &r.TotalCount, &r.DirectionUncertain,
			&r.FramesUsed, &frameTime, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if frameTime.Valid {
			r.FrameTime = frameTime.Time
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// FrameCount returns how many frames have been logged, for diagnostics.
func (d *Database) FrameCount() (int, error) {
	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM frames`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return count, nil
}

var _ analysis.Sink = (*Database)(nil)
