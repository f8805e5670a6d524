package directory

// Person is a validated, immutable member of the colony dataset.
type Person struct {
	ID             string   `json:"id"`
	Index          int      `json:"index"`
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	Gender         string   `json:"gender"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Address        string   `json:"address"`
	IsAlive        bool     `json:"isAlive"`
	EyeColor       string   `json:"eyeColor"`
	CompanyID      string   `json:"companyId,omitempty"` // empty when unemployed
	FriendIDs      []string `json:"friendIds"`
	FavouriteFoods []string `json:"favouriteFoods"`
	Tags           []string `json:"tags"`
}

// Company is a validated, immutable employer.
type Company struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Dataset is the complete pair of collections delivered by one ingestion cycle.
// Slice order is the ingestion order.
type Dataset struct {
	People    []Person  `json:"people"`
	Companies []Company `json:"companies"`
}
