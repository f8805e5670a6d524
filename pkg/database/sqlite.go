package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jamesprial/colony-directory/pkg/directory"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

func NewDB(dbPath string) (*DB, error) {
	return NewDBWithLogger(dbPath, slog.Default())
}

// NewDBWithLogger opens (creating if needed) the sqlite database at dbPath
// and migrates its schema.
func NewDBWithLogger(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMA foreign_keys in effect and serialises writers.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("database ready", slog.String("path", dbPath))
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS companies (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			source_index INTEGER NOT NULL,
			name TEXT UNIQUE NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS people (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			source_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			age INTEGER NOT NULL,
			gender TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			is_alive INTEGER NOT NULL,
			eye_color TEXT NOT NULL,
			company_id TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS friendships (
			person_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			friend_id TEXT NOT NULL,
			FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE,
			PRIMARY KEY (person_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS favourite_foods (
			person_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			food TEXT NOT NULL,
			FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE,
			PRIMARY KEY (person_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS person_tags (
			person_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			tag TEXT NOT NULL,
			FOREIGN KEY (person_id) REFERENCES people(id) ON DELETE CASCADE,
			PRIMARY KEY (person_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS ingested_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_hash TEXT NOT NULL,
			people_hash TEXT NOT NULL,
			ingested_on TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_people_position ON people(position);`,
		`CREATE INDEX IF NOT EXISTS idx_people_company ON people(company_id);`,
		`CREATE INDEX IF NOT EXISTS idx_companies_position ON companies(position);`,
		`CREATE INDEX IF NOT EXISTS idx_ingested_files_hashes ON ingested_files(company_hash, people_hash);`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// ReplaceDataset stores ds as the complete current dataset and records the
// file pair it came from, in one transaction. Slice order is kept.
func (db *DB) ReplaceDataset(ctx context.Context, ds directory.Dataset, companyHash, peopleHash string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"favourite_foods", "person_tags", "friendships", "people", "companies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, c := range ds.Companies {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO companies (id, position, source_index, name) VALUES (?, ?, ?, ?)",
			c.ID, i, c.Index, c.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert company %q: %w", c.Name, err)
		}
	}

	for i, p := range ds.People {
		var companyID sql.NullString
		if p.CompanyID != "" {
			companyID = sql.NullString{String: p.CompanyID, Valid: true}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO people (id, position, source_index, name, age, gender, email, phone, address, is_alive, eye_color, company_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, p.Index, p.Name, p.Age, p.Gender, p.Email, p.Phone, p.Address, p.IsAlive, p.EyeColor, companyID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert person %s: %w", p.ID, err)
		}

		if err := insertList(ctx, tx, "friendships", "friend_id", p.ID, p.FriendIDs); err != nil {
			return err
		}
		if err := insertList(ctx, tx, "favourite_foods", "food", p.ID, p.FavouriteFoods); err != nil {
			return err
		}
		if err := insertList(ctx, tx, "person_tags", "tag", p.ID, p.Tags); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO ingested_files (company_hash, people_hash) VALUES (?, ?)",
		companyHash, peopleHash,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingestion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Debug("dataset replaced",
		slog.Int("people", len(ds.People)),
		slog.Int("companies", len(ds.Companies)),
	)
	return nil
}

func insertList(ctx context.Context, tx *sql.Tx, table, column, personID string, values []string) error {
	query := fmt.Sprintf("INSERT INTO %s (person_id, position, %s) VALUES (?, ?, ?)", table, column)
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, query, personID, i, v); err != nil {
			return fmt.Errorf("failed to insert %s for %s: %w", table, personID, err)
		}
	}
	return nil
}

// LoadDataset reads the stored dataset back in the order it was stored.
func (db *DB) LoadDataset(ctx context.Context) (directory.Dataset, error) {
	ds := directory.Dataset{
		Companies: []directory.Company{},
		People:    []directory.Person{},
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, source_index, name
		FROM companies
		ORDER BY position
	`)
	if err != nil {
		return directory.Dataset{}, err
	}
	for rows.Next() {
		var c directory.Company
		if err := rows.Scan(&c.ID, &c.Index, &c.Name); err != nil {
			rows.Close()
			return directory.Dataset{}, err
		}
		ds.Companies = append(ds.Companies, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return directory.Dataset{}, err
	}

	friends, err := db.loadLists(ctx, "friendships", "friend_id")
	if err != nil {
		return directory.Dataset{}, err
	}
	foods, err := db.loadLists(ctx, "favourite_foods", "food")
	if err != nil {
		return directory.Dataset{}, err
	}
	tags, err := db.loadLists(ctx, "person_tags", "tag")
	if err != nil {
		return directory.Dataset{}, err
	}

	rows, err = db.conn.QueryContext(ctx, `
		SELECT id, source_index, name, age, gender, email, phone, address, is_alive, eye_color, company_id
		FROM people
		ORDER BY position
	`)
	if err != nil {
		return directory.Dataset{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         directory.Person
			companyID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Index, &p.Name, &p.Age, &p.Gender, &p.Email, &p.Phone, &p.Address,
			&p.IsAlive, &p.EyeColor, &companyID); err != nil {
			return directory.Dataset{}, err
		}
		p.CompanyID = companyID.String
		p.FriendIDs = orEmpty(friends[p.ID])
		p.FavouriteFoods = orEmpty(foods[p.ID])
		p.Tags = orEmpty(tags[p.ID])
		ds.People = append(ds.People, p)
	}

	return ds, rows.Err()
}

func (db *DB) loadLists(ctx context.Context, table, column string) (map[string][]string, error) {
	query := fmt.Sprintf("SELECT person_id, %s FROM %s ORDER BY person_id, position", column, table)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make(map[string][]string)
	for rows.Next() {
		var r listRow
		if err := rows.Scan(&r.PersonID, &r.Value); err != nil {
			return nil, err
		}
		lists[r.PersonID] = append(lists[r.PersonID], r.Value)
	}
	return lists, rows.Err()
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// LastIngestion returns the most recently recorded file pair, or nil when
// nothing has been ingested yet.
func (db *DB) LastIngestion(ctx context.Context) (*IngestionRecord, error) {
	var rec IngestionRecord
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, company_hash, people_hash, ingested_on
		FROM ingested_files
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&rec.ID, &rec.CompanyHash, &rec.PeopleHash, &rec.IngestedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// IsCurrent reports whether the stored dataset was built from exactly this
// file pair. A pair ingested earlier and since superseded is not current.
func (db *DB) IsCurrent(ctx context.Context, companyHash, peopleHash string) (bool, error) {
	last, err := db.LastIngestion(ctx)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return last.CompanyHash == companyHash && last.PeopleHash == peopleHash, nil
}
