// Package classify derives facility attributes from source codes: tank
// product/status/capacity classification and NAICS sector classification.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// Capacity buckets, lower-inclusive.
const (
	BucketUnder1K = "<1K"
	Bucket1K      = "1K-5K"
	Bucket5K      = "5K-10K"
	Bucket10K     = "10K-20K"
	Bucket20K     = "20K+"
)

var (
	dieselLikeCodes = map[string]bool{"DIESL": true, "BIDSL": true, "HO": true, "KERO": true}
	activeStatus    = map[string]bool{"C": true}
	reNumber        = regexp.MustCompile(`(\d+\.?\d*)`)
)

// DieselLikeCodes returns the product codes treated as diesel-like.
func DieselLikeCodes() []string {
	return []string{"DIESL", "BIDSL", "HO", "KERO"}
}

// CleanCapacity extracts the first number from a capacity string, ignoring
// thousands separators and units. Returns nil when nothing numeric is found.
func CleanCapacity(raw string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil
	}
	m := reNumber.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// CapacityBucket maps gallons to a bucket with boundaries at 1,000, 5,000,
// 10,000 and 20,000. Unknown capacity falls in the smallest bucket.
func CapacityBucket(gallons *float64) string {
	if gallons == nil {
		return BucketUnder1K
	}
	switch g := *gallons; {
	case g >= 20000:
		return Bucket20K
	case g >= 10000:
		return Bucket10K
	case g >= 5000:
		return Bucket5K
	case g >= 1000:
		return Bucket1K
	default:
		return BucketUnder1K
	}
}

// DieselLike reports whether a tank product code is diesel, biodiesel,
// heating oil or kerosene.
func DieselLike(productCode string) bool {
	return dieselLikeCodes[strings.ToUpper(strings.TrimSpace(productCode))]
}

// ActiveLike reports whether a tank status code denotes an active facility.
// Temporarily-out-of-use ("T") does not count.
func ActiveLike(statusCode string) bool {
	return activeStatus[strings.ToUpper(strings.TrimSpace(statusCode))]
}
