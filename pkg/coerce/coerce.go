// Package coerce converts loosely typed upstream values into the strict optional
// types bound to snapshot columns.
//
// Every function in this package is total. Input that is missing, malformed or not
// representable comes back absent (Valid == false); callers never receive an error
// and never a zero default standing in for "unknown".
package coerce

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted layout for calendar dates.
const DateLayout = "2006-01-02"

// Absent is the zero NullDecimal, spelled out for readability at call sites.
var Absent = decimal.NullDecimal{}

// FloatValue converts a present float into an exact decimal. NaN and ±Inf have no
// decimal form and come back absent.
func FloatValue(v float64) decimal.NullDecimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

// Float converts an optional float into an optional decimal.
func Float(v *float64) decimal.NullDecimal {
	if v == nil {
		return Absent
	}
	return FloatValue(*v)
}

// String parses a numeric string as a float first, then converts it. Strings that
// do not parse are absent.
func String(s *string) decimal.NullDecimal {
	if s == nil {
		return Absent
	}
	return parse(*s)
}

func parse(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Absent
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Absent
	}
	return FloatValue(f)
}

// Lookup reads key from a currency/platform keyed map of floats. A nil map, a
// missing key and a null value are all absent.
func Lookup(m map[string]*float64, key string) decimal.NullDecimal {
	if m == nil {
		return Absent
	}
	return Float(m[key])
}

// Text maps an optional string onto its nullable column type. Empty strings are
// kept; only a missing value is NULL.
func Text(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// TextOr returns the string or fallback when it is missing or blank.
func TextOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

// Date parses a YYYY-MM-DD string. Anything else, including timestamps with a
// time part, is absent.
func Date(s *string) sql.NullTime {
	if s == nil {
		return sql.NullTime{}
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(*s))
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// TextArray drops empty entries. An input with nothing left is NULL rather than
// an empty array.
func TextArray(values []string) pq.StringArray {
	var out pq.StringArray
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
