package shape

// TimestampPaths is the probe order for the UTC time of a measurement or
// aggregate. Aggregates report a period, so its start wins over its end.
var TimestampPaths = [][]string{
	{"period", "datetimeFrom", "utc"},
	{"period", "datetimeTo", "utc"},
	{"datetime", "utc"},
	{"date", "utc"},
	{"datetime_utc"},
	{"date"},
}

// Timestamp returns the best available UTC timestamp of r, or "".
func Timestamp(r Record) string {
	if r == nil {
		return ""
	}
	for _, path := range TimestampPaths {
		v := Path(r, path...)
		if v.Kind() != KindString {
			continue
		}
		if s, ok := v.Str(); ok {
			return s
		}
	}
	return ""
}
