package database

import (
	"time"
)

// IngestionRecord is one row of ingested_files: the md5 pair of the resource
// files that produced the stored dataset.
type IngestionRecord struct {
	ID          int64     `json:"id" db:"id"`
	CompanyHash string    `json:"companyHash" db:"company_hash"`
	PeopleHash  string    `json:"peopleHash" db:"people_hash"`
	IngestedOn  time.Time `json:"ingestedOn" db:"ingested_on"`
}

// listRow is a row of one of the ordered per-person list tables
// (friendships, favourite_foods, person_tags).
type listRow struct {
	PersonID string `db:"person_id"`
	Value    string
}
