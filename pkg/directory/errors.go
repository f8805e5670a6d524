package directory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every lookup miss, see NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when a query is malformed, e.g. a
	// common-friends query naming fewer than two distinct people.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateID is returned when a dataset repeats a person id, a
	// company id or a company name.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// Entity kinds reported by NotFoundError.
const (
	KindPerson  = "person"
	KindCompany = "company"
)

// NotFoundError names the entity a query could not resolve.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func personNotFound(id string) error {
	return &NotFoundError{Kind: KindPerson, Key: id}
}

func companyNotFound(name string) error {
	return &NotFoundError{Kind: KindCompany, Key: name}
}
