package normalize

// AddressComponents is a parsed street address.
type AddressComponents struct {
	HouseNumber string `json:"house_number,omitempty"`
	Road        string `json:"road,omitempty"`
	Unit        string `json:"unit,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// StreetLine renders house number and road as a single line.
func (c AddressComponents) StreetLine() string {
	return FullAddress(joinSpace(c.HouseNumber, c.Road), c.Unit, "", "", "", "")
}

func joinSpace(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
