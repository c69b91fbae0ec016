package features

const (
	AgeField       = "domain_age_years"
	AgeBucketField = "domain_age_bucket"
)

// AgeBucket places a domain age on the half-open ranges [0,1), [1,5),
// [5,10), [10,20) and [20,∞).
func AgeBucket(years float64) string {
	switch {
	case years < 1:
		return "0-1y"
	case years < 5:
		return "1-5y"
	case years < 10:
		return "5-10y"
	case years < 20:
		return "10-20y"
	default:
		return "20y+"
	}
}

// WithAgeBucket returns row with domain_age_bucket derived from
// domain_age_years when the bucket is not already present.
func WithAgeBucket(row Row) Row {
	if _, ok := row[AgeBucketField]; ok {
		return row
	}
	age, ok := row[AgeField]
	if !ok || age.Kind != Numeric {
		return row
	}
	out := row.clone()
	out[AgeBucketField] = Category(AgeBucket(age.Num))
	return out
}
