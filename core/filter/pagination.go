package filter

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// DefaultPageSize is used when no valid page size is requested
const DefaultPageSize = 100

// PagePolicy configures pagination defaults. A zero Max means no upper bound.
type PagePolicy struct {
	Default int
	Max     int
}

// DefaultPagePolicy has DefaultPageSize and no upper bound
var DefaultPagePolicy = PagePolicy{Default: DefaultPageSize}

// Page is a normalized skip/page size pair
type Page struct {
	Skip     int
	PageSize int
}

// NormalizePagination coerces raw skip and page size values, which may be
// numbers, numeric strings or nil.
//
// A missing, malformed or negative skip becomes 0. A missing, malformed or
// non-positive page size becomes the policy default, a page size above the
// policy maximum becomes the maximum.
func NormalizePagination(skip, pageSize any, policy PagePolicy) Page {
	def := policy.Default
	if def <= 0 {
		def = DefaultPageSize
	}
	if policy.Max > 0 && def > policy.Max {
		def = policy.Max
	}

	p := Page{PageSize: def}
	if n, ok := toInt(skip); ok && n > 0 {
		p.Skip = n
	}
	if n, ok := toInt(pageSize); ok && n > 0 {
		p.PageSize = n
		if policy.Max > 0 && n > policy.Max {
			p.PageSize = policy.Max
		}
	}
	return p
}

type numberString interface {
	String() string
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case string:
		return parseInt(n)
	case numberString: // json.Number
		return parseInt(n.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return clampInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return math.MaxInt32, true
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		if f > math.MaxInt32 {
			return math.MaxInt32, true
		}
		if f < math.MinInt32 {
			return math.MinInt32, true
		}
		return int(f), true
	}
	return 0, false
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampInt64(n), true
	}
	// "10.0" from a numeric json value
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return toInt(f)
	}
	return 0, false
}

func clampInt64(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int(n)
}
