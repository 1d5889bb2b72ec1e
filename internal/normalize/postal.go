//go:build postal

package normalize

import (
	"strings"

	postal "github.com/openvenues/gopostal/parser"
)

// ParseAddress splits a one-line address with libpostal.
func ParseAddress(address string) AddressComponents {
	var c AddressComponents
	if strings.TrimSpace(address) == "" {
		return c
	}
	for _, component := range postal.ParseAddress(address) {
		v := strings.ToUpper(strings.TrimSpace(component.Value))
		switch component.Label {
		case "house_number":
			c.HouseNumber = v
		case "road":
			c.Road = v
		case "unit":
			c.Unit = v
		case "city":
			c.City = v
		case "state":
			c.State = v
		case "postcode":
			c.Postcode = v
		}
	}
	return c
}
