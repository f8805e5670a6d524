package ingest

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesprial/colony-directory/pkg/directory"
	"golang.org/x/sync/errgroup"
)

const (
	CompaniesFile = "companies.json"
	PeopleFile    = "people.json"
)

// FilePair identifies an ingestion cycle by the md5 of both resource files.
type FilePair struct {
	CompanyHash string `json:"companyHash"`
	PeopleHash  string `json:"peopleHash"`
}

// Source is a directory holding companies.json and people.json.
type Source struct {
	Dir string
}

func (s Source) CompaniesPath() string {
	return filepath.Join(s.Dir, CompaniesFile)
}

func (s Source) PeoplePath() string {
	return filepath.Join(s.Dir, PeopleFile)
}

// Hash returns the md5 pair of both files without decoding them.
func (s Source) Hash(ctx context.Context) (FilePair, error) {
	var pair FilePair
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := os.ReadFile(s.CompaniesPath())
		if err != nil {
			return fmt.Errorf("failed to read companies: %w", err)
		}
		pair.CompanyHash = hashBytes(data)
		return nil
	})
	g.Go(func() error {
		data, err := os.ReadFile(s.PeoplePath())
		if err != nil {
			return fmt.Errorf("failed to read people: %w", err)
		}
		pair.PeopleHash = hashBytes(data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return FilePair{}, err
	}
	return pair, nil
}

// Read reads, hashes and decodes both files and builds the dataset. The
// returned pair describes exactly the bytes the dataset was built from.
func (s Source) Read(ctx context.Context) (directory.Dataset, FilePair, error) {
	var (
		pair      FilePair
		companies []CompanyRecord
		people    []PersonRecord
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := os.ReadFile(s.CompaniesPath())
		if err != nil {
			return fmt.Errorf("failed to read companies: %w", err)
		}
		pair.CompanyHash = hashBytes(data)
		if companies, err = decode[CompanyRecord](data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", CompaniesFile, err)
		}
		return nil
	})
	g.Go(func() error {
		data, err := os.ReadFile(s.PeoplePath())
		if err != nil {
			return fmt.Errorf("failed to read people: %w", err)
		}
		pair.PeopleHash = hashBytes(data)
		if people, err = decode[PersonRecord](data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", PeopleFile, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return directory.Dataset{}, FilePair{}, err
	}

	ds, err := BuildDataset(companies, people)
	if err != nil {
		return directory.Dataset{}, FilePair{}, err
	}
	return ds, pair, nil
}

func decode[T any](data []byte) ([]T, error) {
	var out []T
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func hashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
