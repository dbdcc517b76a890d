package etl

import "strings"

// inferSample caps how many non-empty values per column feed inference.
const inferSample = 100

// inferKinds picks each column's kind from sampled values. A kind fits when
// every sampled non-empty value parses as it, narrowest first; failing that,
// when a majority does. The majority fallback keeps occasional garbage in an
// otherwise typed column from widening it to string, so those cells read as
// null and fall to the filter instead. Columns with no non-empty samples
// stay string.
func inferKinds(columns []string, rows [][]string) []Kind {
	kinds := make([]Kind, len(columns))

	for c := range columns {
		var ints, floats, dates, times, sampled int

		for _, row := range rows {
			if sampled >= inferSample {
				break
			}
			v := strings.TrimSpace(row[c])
			if v == "" {
				continue
			}
			sampled++

			if _, ok := parseInt(v); ok {
				ints++
			}
			if _, ok := parseNumber(v); ok {
				floats++
			}
			if _, ok := ParseDate(v); ok {
				dates++
			}
			if _, ok := ParseTime(v); ok {
				times++
			}
		}

		if sampled == 0 {
			kinds[c] = KindString
			continue
		}

		switch {
		case ints == sampled:
			kinds[c] = KindInt
		case floats == sampled:
			kinds[c] = KindFloat
		case dates == sampled:
			kinds[c] = KindDate
		case times == sampled:
			kinds[c] = KindTime
		case ints*2 > sampled:
			kinds[c] = KindInt
		case floats*2 > sampled:
			kinds[c] = KindFloat
		case dates*2 > sampled:
			kinds[c] = KindDate
		case times*2 > sampled:
			kinds[c] = KindTime
		default:
			kinds[c] = KindString
		}
	}

	return kinds
}

// missing reports whether a cell is null under the column's kind: blank, or
// failing to parse as that kind. Malformed values are nulls by inference,
// which is what lets the null filter absorb permissively parsed rows.
func missing(val string, kind Kind) bool {
	v := strings.TrimSpace(val)
	if v == "" {
		return true
	}
	switch kind {
	case KindInt:
		_, ok := parseInt(v)
		return !ok
	case KindFloat:
		_, ok := parseNumber(v)
		return !ok
	case KindDate:
		_, ok := ParseDate(v)
		return !ok
	case KindTime:
		_, ok := ParseTime(v)
		return !ok
	default:
		return false
	}
}
