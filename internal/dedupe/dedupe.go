// Package dedupe collapses raw facility records that describe the same site:
// records are sharded by spatial bucket and greedily clustered by name
// similarity inside each bucket.
package dedupe

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/geo"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/normalize"
)

// DefaultThreshold is the minimum name similarity for two records in the
// same bucket to be treated as one facility.
const DefaultThreshold = 90.0

// Options configure a Deduplicator.
type Options struct {
	Threshold float64
	Precision int
}

// DefaultOptions returns the standard clustering settings.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		Precision: geo.DefaultPrecision,
	}
}

// Stats summarises one dedupe pass.
type Stats struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Clusters   int `json:"clusters"`
	Singletons int `json:"singletons"`
	Unbucketed int `json:"unbucketed"`
	Merged     int `json:"merged"`
}

// Result is the deduplicated universe plus pass statistics.
type Result struct {
	Records []model.RawRecord
	Stats   Stats
}

// Deduplicator clusters raw records. It holds only configuration.
type Deduplicator struct {
	opts Options
}

// New validates opts and returns a Deduplicator.
func New(opts Options) (*Deduplicator, error) {
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, eris.Wrapf(model.ErrConfiguration, "dedupe threshold %.1f outside 0-100", opts.Threshold)
	}
	if opts.Precision < 1 || opts.Precision > geo.MaxPrecision {
		return nil, eris.Wrapf(model.ErrConfiguration, "bucket precision %d outside 1-%d", opts.Precision, geo.MaxPrecision)
	}
	return &Deduplicator{opts: opts}, nil
}

// cluster is a group of input positions; members[0] is the record other
// records are compared against.
type cluster struct {
	key     string
	members []int
}

// Dedupe returns one representative per cluster, ordered by the input
// position of each cluster's first member. Clustering is first-match greedy
// in encounter order, so the result depends on input order.
func (d *Deduplicator) Dedupe(records []model.RawRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(model.ErrInputShape, "no records to dedupe")
	}

	stats := Stats{Input: len(records)}
	var ordered []*cluster
	buckets := make(map[string][]*cluster)

	for i, r := range records {
		key := normalize.CompanyKey(r.Name)
		bucket := geo.SpatialBucket(r.Lat, r.Lon, d.opts.Precision)

		if bucket == geo.NoBucket {
			stats.Unbucketed++
			ordered = append(ordered, &cluster{members: []int{i}})
			continue
		}
		if key == "" {
			c := &cluster{members: []int{i}}
			buckets[bucket] = append(buckets[bucket], c)
			ordered = append(ordered, c)
			continue
		}

		joined := false
		for _, c := range buckets[bucket] {
			if c.key == "" {
				continue
			}
			if normalize.Similarity(key, c.key) >= d.opts.Threshold {
				c.members = append(c.members, i)
				joined = true
				break
			}
		}
		if !joined {
			c := &cluster{key: key, members: []int{i}}
			buckets[bucket] = append(buckets[bucket], c)
			ordered = append(ordered, c)
		}
	}

	out := make([]model.RawRecord, 0, len(ordered))
	for _, c := range ordered {
		if len(c.members) == 1 {
			stats.Singletons++
		} else {
			stats.Merged += len(c.members) - 1
		}
		out = append(out, records[representative(records, c.members)])
	}
	stats.Clusters = len(ordered)
	stats.Output = len(out)

	zap.L().Info("dedupe complete",
		zap.Int("input", stats.Input),
		zap.Int("output", stats.Output),
		zap.Int("merged", stats.Merged),
		zap.Int("unbucketed", stats.Unbucketed))

	return &Result{Records: out, Stats: stats}, nil
}

// representative picks the member with the most populated fields; the
// earliest member wins ties.
func representative(records []model.RawRecord, members []int) int {
	best := members[0]
	bestCount := records[best].PopulatedCount()
	for _, m := range members[1:] {
		if n := records[m].PopulatedCount(); n > bestCount {
			best, bestCount = m, n
		}
	}
	return best
}
