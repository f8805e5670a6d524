package server

import (
	"github.com/jamesprial/colony-directory/pkg/directory"
)

// Employee is one entry of a company roster.
type Employee struct {
	Name string `json:"name"`
}

// CompanyEmployeesResult is returned by the company_employees tool and by
// GET /company/{name}/.
type CompanyEmployeesResult struct {
	Company   string     `json:"company"`
	Employees []Employee `json:"employees"`
}

// IndividualDetails describes one of the people a common-friends query was
// asked about.
type IndividualDetails struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Friend is one shared friend.
type Friend struct {
	Name string `json:"name"`
}

type CommonFriendsResult struct {
	IndividualsDetails []IndividualDetails `json:"individuals_details"`
	CommonFriends      []Friend            `json:"common_browneyed_alive_friends"`
}

// FavouriteFoodsResult groups a person's favourite foods by kind. Empty
// groups are left out.
type FavouriteFoodsResult struct {
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Fruits        []string `json:"fruits,omitempty"`
	Vegetables    []string `json:"vegetables,omitempty"`
	Unclassifieds []string `json:"unclassifieds,omitempty"`
}

func toEmployees(people []directory.Person) []Employee {
	out := make([]Employee, 0, len(people))
	for _, p := range people {
		out = append(out, Employee{Name: p.Name})
	}
	return out
}

func toFriends(people []directory.Person) []Friend {
	out := make([]Friend, 0, len(people))
	for _, p := range people {
		out = append(out, Friend{Name: p.Name})
	}
	return out
}

func toDetails(p directory.Person) IndividualDetails {
	return IndividualDetails{
		Name:    p.Name,
		Age:     p.Age,
		Address: p.Address,
		Phone:   p.Phone,
	}
}
