package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id   TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		feature_name TEXT NOT NULL,
		description  TEXT NOT NULL,
		domain       TEXT NOT NULL,
		niche        TEXT DEFAULT '',
		keywords     TEXT DEFAULT '',
		frequency    TEXT DEFAULT '',
		status       TEXT DEFAULT '',
		message      TEXT DEFAULT '',
		submitted_at TEXT NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_request ON submissions(request_id);
	CREATE INDEX IF NOT EXISTS idx_submissions_domain ON submissions(domain);
	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func InsertRow(db *sql.DB, row ProjectedRow) error {
	_, err := db.Exec(
		`INSERT INTO submissions (request_id, user_id, feature_name, description, domain, niche, keywords, frequency, status, message, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RequestID, row.UserID, row.FeatureName, row.Description, row.Domain,
		row.Niche, row.Keywords, row.Frequency, row.Status, row.Message, row.Timestamp,
	)
	return err
}

func GetRowByRequestID(db *sql.DB, requestID string) (ProjectedRow, error) {
	var row ProjectedRow
	err := db.QueryRow(
		`SELECT request_id, user_id, feature_name, description, domain, niche, keywords, frequency, status, message, submitted_at
		 FROM submissions WHERE request_id = ?`,
		requestID,
	).Scan(
		&row.RequestID, &row.UserID, &row.FeatureName, &row.Description, &row.Domain,
		&row.Niche, &row.Keywords, &row.Frequency, &row.Status, &row.Message, &row.Timestamp,
	)
	return row, err
}

// DomainCount is one digest line: submissions per domain since a cutoff.
type DomainCount struct {
	Domain string
	Count  int
}

func CountByDomainSince(db *sql.DB, since time.Time) ([]DomainCount, error) {
	rows, err := db.Query(
		`SELECT domain, COUNT(*) FROM submissions
		 WHERE created_at >= ?
		 GROUP BY domain ORDER BY COUNT(*) DESC, domain`,
		since.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DomainCount
	for rows.Next() {
		var c DomainCount
		if err := rows.Scan(&c.Domain, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func CountFallbacksSince(db *sql.DB, since time.Time) (int, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM submissions
		 WHERE created_at >= ? AND feature_name = ?`,
		since.UTC().Format("2006-01-02 15:04:05"), fallbackFeatureName,
	).Scan(&count)
	return count, err
}
