//go:build !postal

package normalize

import (
	"regexp"
	"strings"
)

var (
	reZip         = regexp.MustCompile(`^(\d{5})(?:-\d{4})?$`)
	reStateZip    = regexp.MustCompile(`^([A-Z]{2})\s+(\d{5})(?:-\d{4})?$`)
	reState       = regexp.MustCompile(`^[A-Z]{2}$`)
	reHouseNumber = regexp.MustCompile(`^(\d+[A-Z]?)\s+(.*)$`)
)

// ParseAddress splits a one-line US address on commas, working backwards
// from the zip code. Build with the "postal" tag to use libpostal instead.
func ParseAddress(address string) AddressComponents {
	var c AddressComponents
	var parts []string
	for _, p := range strings.Split(strings.ToUpper(address), ",") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return c
	}

	if m := reHouseNumber.FindStringSubmatch(parts[0]); m != nil {
		c.HouseNumber, c.Road = m[1], m[2]
	} else {
		c.Road = parts[0]
	}

	rest := parts[1:]
	if n := len(rest); n > 0 && (rest[n-1] == "USA" || rest[n-1] == "US") {
		rest = rest[:n-1]
	}
	if n := len(rest); n > 0 && reZip.MatchString(rest[n-1]) {
		c.Postcode = reZip.FindStringSubmatch(rest[n-1])[1]
		rest = rest[:n-1]
	}
	if n := len(rest); n > 0 {
		if m := reStateZip.FindStringSubmatch(rest[n-1]); m != nil {
			c.State, c.Postcode = m[1], m[2]
			rest = rest[:n-1]
		} else if reState.MatchString(rest[n-1]) {
			c.State = rest[n-1]
			rest = rest[:n-1]
		}
	}
	if n := len(rest); n > 0 {
		c.City = rest[n-1]
		rest = rest[:n-1]
	}
	c.Unit = strings.Join(rest, " ")
	return c
}
