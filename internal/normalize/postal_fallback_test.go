//go:build !postal

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddressFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AddressComponents
	}{
		{
			name:  "full address",
			input: "123 Main St, Suite 100, Philadelphia, PA, 19101, USA",
			want:  AddressComponents{HouseNumber: "123", Road: "MAIN ST", Unit: "SUITE 100", City: "PHILADELPHIA", State: "PA", Postcode: "19101"},
		},
		{
			name:  "state and zip together",
			input: "2450 Old Welsh Road, Willow Grove, PA 19090",
			want:  AddressComponents{HouseNumber: "2450", Road: "OLD WELSH ROAD", City: "WILLOW GROVE", State: "PA", Postcode: "19090"},
		},
		{
			name:  "no house number",
			input: "Route 611, Doylestown",
			want:  AddressComponents{Road: "ROUTE 611", City: "DOYLESTOWN"},
		},
		{
			name:  "empty",
			input: " , ",
			want:  AddressComponents{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.input))
		})
	}
}
