// Package disclosurestore persists categorized disclosure records to
// sqlite so repeated CLI runs can diff and reuse earlier fetches.
package disclosurestore

import (
	"context"
	"database/sql"

	"capitolwatch-backend/lib/sqliteutil"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path. ":memory:" works for tests.
func Open(path string) (Store, error) {
	database, err := sqliteutil.OpenDB(schema, path)
	if err != nil {
		return Store{}, err
	}
	return Store{db: database}, nil
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Record is one normalized disclosure row.
type Record struct {
	Category    string
	Subject     string
	Office      string
	ReportType  string
	FiledDate   string
	DocumentURL string
	FilePath    string
}

// Push replaces the stored records for one member and year in a single
// transaction.
func (s Store) Push(ctx context.Context, member, chamber, year string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`DELETE FROM disclosure WHERE member = ? AND chamber = ? AND year = ?`,
		member, chamber, year,
	)
	if err != nil {
		return err
	}

	for _, record := range records {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO disclosure
				(member, chamber, year, category, subject, office, report_type, filed_date, document_url, file_path)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			member, chamber, year,
			record.Category, record.Subject, record.Office,
			record.ReportType, record.FiledDate, record.DocumentURL, record.FilePath,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Pull returns the stored records for one member and year, grouped by
// category in insertion order.
func (s Store) Pull(ctx context.Context, member, chamber, year string) (map[string][]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT category, subject, office, report_type, filed_date, document_url, file_path
			FROM disclosure
			WHERE member = ? AND chamber = ? AND year = ?
			ORDER BY id ASC`,
		member, chamber, year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categorized := map[string][]Record{}
	for rows.Next() {
		var record Record
		err = rows.Scan(
			&record.Category, &record.Subject, &record.Office,
			&record.ReportType, &record.FiledDate, &record.DocumentURL, &record.FilePath,
		)
		if err != nil {
			return nil, err
		}
		categorized[record.Category] = append(categorized[record.Category], record)
	}
	return categorized, rows.Err()
}
