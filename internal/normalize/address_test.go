package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "street suffix dropped", input: "123 Main Street", want: "123 MAIN"},
		{name: "abbreviated suffix dropped", input: "123 Main St.", want: "123 MAIN"},
		{name: "punctuation stripped not spaced", input: "O'Brien's Fuel, Inc.", want: "OBRIENS FUEL INC"},
		{name: "whitespace collapsed", input: "  Acme \t  Trucking  ", want: "ACME TRUCKING"},
		{name: "all suffixes", input: "ave avenue rd road blvd boulevard dr drive ln lane ct court pl place", want: ""},
		{name: "suffix inside word kept", input: "Stone Drive-In", want: "STONE DRIVEIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchKey(tt.input))
		})
	}
}

func TestMatchKeyEquivalence(t *testing.T) {
	assert.Equal(t, MatchKey("123 Main Street"), MatchKey("123 Main St"))
	assert.Equal(t, MatchKey("123 Main St."), MatchKey("123 Main St"))
	assert.NotEqual(t, MatchKey("456 Oak Avenue"), MatchKey("123 Main St"))
}

func TestCompanyKey(t *testing.T) {
	assert.Equal(t, "ACME TRUCKING", CompanyKey("ACME TRUCKING LLC"))
	assert.Equal(t, "ACME TRUCKING", CompanyKey("Acme Trucking, Inc."))
	assert.Equal(t, CompanyKey("ACME TRUCKING"), CompanyKey("ACME TRUCKING LLC"))
	assert.Equal(t, "", CompanyKey(""))
	assert.Equal(t, "BOB", CompanyKey("BOB ST INC"))
	assert.Equal(t, "BOBS", CompanyKey("BOBS ST INC"))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "ACME", b: "ACME", want: 100},
		{name: "case insensitive", a: "acme", b: "ACME", want: 100},
		{name: "both empty", a: "", b: "", want: 100},
		{name: "one empty", a: "ACME", b: "", want: 0},
		{name: "one substitution in ten", a: "ABCDEFGHIJ", b: "ABCDEFGHIX", want: 90},
		{name: "one deletion in eight", a: "ABCDEFGH", b: "ABCDEFG", want: 87.5},
		{name: "disjoint", a: "AAAA", b: "BBBB", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, Similarity(tt.b, tt.a), 1e-9, "must be symmetric")
		})
	}
}

func TestFullAddress(t *testing.T) {
	assert.Equal(t, "123 Main St, Suite 100, Philadelphia, PA, 19101, USA",
		FullAddress("123 Main St", "Suite 100", "Philadelphia", "PA", "19101", "USA"))
	assert.Equal(t, "123 Main St, Philadelphia, PA, USA",
		FullAddress("123 Main St", "", "Philadelphia", "PA", " ", "USA"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(" ,.- "))
	assert.False(t, IsBlank("A"))
}
