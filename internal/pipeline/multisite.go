package pipeline

import (
	"strconv"
	"time"

	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/merge"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/normalize"
)

// applyMultiSite flags every located entity whose company key also appears
// at another located entity within radiusMiles, and records the number of
// sites in reach as a multi_site signal. It returns the number of flagged
// entities.
func applyMultiSite(entities []model.Entity, radiusMiles float64, signals *merge.SignalSet, at time.Time) int {
	groups := make(map[string][]int)
	var order []string
	for i := range entities {
		e := &entities[i]
		if !e.Located() || !geo.Valid(*e.Lat, *e.Lon) {
			continue
		}
		key := normalize.CompanyKey(e.Name)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	flagged := 0
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			a := &entities[i]
			sites := 1
			for _, j := range members {
				if i == j {
					continue
				}
				b := &entities[j]
				if geo.DistanceMiles(*a.Lat, *a.Lon, *b.Lat, *b.Lon) <= radiusMiles {
					sites++
				}
			}
			if sites < 2 {
				continue
			}
			a.MultiSite = true
			flagged++
			signals.Upsert(model.NewSignal(a.ID, SignalMultiSite, strconv.Itoa(sites), SourceResolver, at))
		}
	}
	return flagged
}
