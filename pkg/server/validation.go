package server

import (
	"fmt"
	"unicode/utf8"

	"github.com/jamesprial/colony-directory/pkg/directory"
)

const (
	MaxCompanyNameLength = 255
	MaxPersonIDLength    = 64
	MaxPeoplePerRequest  = 100
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", directory.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func validateText(field, value string, maxLen int) error {
	if value == "" {
		return invalid("%s cannot be empty", field)
	}

	if !utf8.ValidString(value) {
		return invalid("%s contains invalid UTF-8 characters", field)
	}

	if len(value) > maxLen {
		return invalid("%s exceeds maximum length of %d characters", field, maxLen)
	}

	for _, r := range value {
		if r < 32 || r == 127 {
			return invalid("%s contains control characters", field)
		}
	}

	return nil
}

// ValidateCompanyName validates a company name
func ValidateCompanyName(name string) error {
	return validateText("company name", name, MaxCompanyNameLength)
}

// ValidatePersonID validates a person id
func ValidatePersonID(id string) error {
	return validateText("person id", id, MaxPersonIDLength)
}

// ValidateCommonFriendsParams validates parameters for a common-friends query.
// The distinct-people minimum is enforced by the query itself.
func ValidateCommonFriendsParams(params CommonFriendsParams) error {
	if len(params.People) == 0 {
		return invalid("no people provided")
	}

	if len(params.People) > MaxPeoplePerRequest {
		return invalid("too many people in request: %d (max %d)", len(params.People), MaxPeoplePerRequest)
	}

	for i, id := range params.People {
		if err := ValidatePersonID(id); err != nil {
			return fmt.Errorf("people[%d]: %w", i, err)
		}
	}

	return nil
}
