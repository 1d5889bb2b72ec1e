package model

// Sector is a business sector label. Its Rank orders equally confident
// classifications during merge: lower ranks win.
type Sector string

const (
	SectorFleet         Sector = "Fleet and Transportation"
	SectorHealthcare    Sector = "Healthcare"
	SectorConstruction  Sector = "Construction"
	SectorUtilities     Sector = "Utilities and Data Centers"
	SectorManufacturing Sector = "Industrial and Manufacturing"
	SectorEducation     Sector = "Education"
	SectorPublic        Sector = "Public and Government"
	SectorRetail        Sector = "Retail and Commercial Fueling"
	SectorUnknown       Sector = "Unknown"
)

const unrankedSector = 99

var sectorRanks = map[Sector]int{
	SectorFleet:         1,
	SectorHealthcare:    2,
	SectorConstruction:  3,
	SectorUtilities:     4,
	SectorManufacturing: 5,
	SectorEducation:     6,
	SectorPublic:        7,
	SectorRetail:        8,
	SectorUnknown:       9,
}

// Sectors lists every known sector in preference order.
func Sectors() []Sector {
	return []Sector{
		SectorFleet, SectorHealthcare, SectorConstruction, SectorUtilities,
		SectorManufacturing, SectorEducation, SectorPublic, SectorRetail, SectorUnknown,
	}
}

// Rank returns the merge preference rank; unrecognised labels rank last.
func (s Sector) Rank() int {
	if r, ok := sectorRanks[s]; ok {
		return r
	}
	return unrankedSector
}

// Known reports whether s is a classified sector other than Unknown.
func (s Sector) Known() bool {
	_, ok := sectorRanks[s]
	return ok && s != SectorUnknown
}

// Tier is the coarse score band used for CRM prioritisation.
type Tier string

const (
	TierA    Tier = "Tier A"
	TierB    Tier = "Tier B"
	TierC    Tier = "Tier C"
	TierPark Tier = "Park"
)
