package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jamesprial/colony-directory/pkg/directory"
)

// ErrInvalidDataset is returned when the resource files fail validation or
// are not consistent with each other.
var ErrInvalidDataset = errors.New("invalid dataset")

var validate = validator.New()

// CompanyRecord is one entry of companies.json.
type CompanyRecord struct {
	Index int    `json:"index" validate:"gte=0"`
	Name  string `json:"company" validate:"required,max=100"`
}

// FriendRef points at another entry of people.json by its index.
type FriendRef struct {
	Index int `json:"index" validate:"gte=0"`
}

// PersonRecord is one entry of people.json.
type PersonRecord struct {
	ObjectID      string      `json:"_id"`
	Index         int         `json:"index" validate:"gte=0"`
	GUID          string      `json:"guid" validate:"required,uuid"`
	HasDied       *bool       `json:"has_died"` // nil when unknown
	Balance       string      `json:"balance"`
	Picture       string      `json:"picture"`
	Age           int         `json:"age" validate:"gte=0"`
	EyeColor      string      `json:"eyeColor" validate:"max=10"`
	Name          string      `json:"name" validate:"required,max=70"`
	Gender        string      `json:"gender"`
	CompanyID     int         `json:"company_id"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	About         string      `json:"about"`
	Registered    string      `json:"registered"`
	Tags          []string    `json:"tags"`
	Friends       []FriendRef `json:"friends" validate:"dive"`
	Greeting      string      `json:"greeting"`
	FavouriteFood []string    `json:"favouriteFood"`
}

// CompanyID derives a company's id from its name so the same company keeps
// its id across ingestion cycles.
func CompanyID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// BuildDataset validates both collections and converts them into a
// directory.Dataset, preserving file order.
//
// A person's company_id is the 1-based company index (company_id-1 matches
// CompanyRecord.Index); ids that match no company leave the person
// unemployed. Friend references that match no person are dropped.
func BuildDataset(companies []CompanyRecord, people []PersonRecord) (directory.Dataset, error) {
	ds := directory.Dataset{
		Companies: make([]directory.Company, 0, len(companies)),
		People:    make([]directory.Person, 0, len(people)),
	}

	companyByIndex := make(map[int]string, len(companies))
	names := make(map[string]struct{}, len(companies))
	for i, rec := range companies {
		if err := validate.Struct(rec); err != nil {
			return directory.Dataset{}, fmt.Errorf("companies[%d]: %w: %v", i, ErrInvalidDataset, err)
		}
		if _, ok := companyByIndex[rec.Index]; ok {
			return directory.Dataset{}, fmt.Errorf("companies[%d]: %w: duplicate index %d", i, ErrInvalidDataset, rec.Index)
		}
		if _, ok := names[rec.Name]; ok {
			return directory.Dataset{}, fmt.Errorf("companies[%d]: %w: duplicate name %q", i, ErrInvalidDataset, rec.Name)
		}
		id := CompanyID(rec.Name)
		companyByIndex[rec.Index] = id
		names[rec.Name] = struct{}{}
		ds.Companies = append(ds.Companies, directory.Company{ID: id, Index: rec.Index, Name: rec.Name})
	}

	guidByIndex := make(map[int]string, len(people))
	guids := make(map[string]struct{}, len(people))
	for i, rec := range people {
		if err := validate.Struct(rec); err != nil {
			return directory.Dataset{}, fmt.Errorf("people[%d]: %w: %v", i, ErrInvalidDataset, err)
		}
		guid, err := uuid.Parse(rec.GUID)
		if err != nil {
			return directory.Dataset{}, fmt.Errorf("people[%d]: %w: %v", i, ErrInvalidDataset, err)
		}
		id := guid.String()
		if _, ok := guidByIndex[rec.Index]; ok {
			return directory.Dataset{}, fmt.Errorf("people[%d]: %w: duplicate index %d", i, ErrInvalidDataset, rec.Index)
		}
		if _, ok := guids[id]; ok {
			return directory.Dataset{}, fmt.Errorf("people[%d]: %w: duplicate guid %s", i, ErrInvalidDataset, id)
		}
		guidByIndex[rec.Index] = id
		guids[id] = struct{}{}
	}

	for _, rec := range people {
		friends := make([]string, 0, len(rec.Friends))
		for _, f := range rec.Friends {
			if id, ok := guidByIndex[f.Index]; ok {
				friends = append(friends, id)
			}
		}

		ds.People = append(ds.People, directory.Person{
			ID:             guidByIndex[rec.Index],
			Index:          rec.Index,
			Name:           rec.Name,
			Age:            rec.Age,
			Gender:         rec.Gender,
			Email:          rec.Email,
			Phone:          rec.Phone,
			Address:        rec.Address,
			IsAlive:        isAlive(rec.HasDied),
			EyeColor:       strings.ToLower(strings.TrimSpace(rec.EyeColor)),
			CompanyID:      companyByIndex[rec.CompanyID-1],
			FriendIDs:      friends,
			FavouriteFoods: nonNil(rec.FavouriteFood),
			Tags:           nonNil(rec.Tags),
		})
	}

	return ds, nil
}

// isAlive counts only people recorded as not having died. An unknown status
// keeps the person out of alive-only results.
func isAlive(hasDied *bool) bool {
	return hasDied != nil && !*hasDied
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
