package coerce

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number captures a JSON value that upstreams send either as a number or as a
// numeric string. Decoding never fails: unexpected shapes (objects, arrays,
// booleans) simply leave the Number absent.
type Number struct {
	raw   string
	valid bool
}

// NumberOf builds a present Number from its textual form.
func NumberOf(raw string) Number {
	return Number{raw: raw, valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*n = Number{raw: s, valid: true}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*n = Number{raw: string(b), valid: true}
	}
	return nil
}

// Present reports whether the upstream sent a value at all.
func (n Number) Present() bool { return n.valid }

// Raw returns the upstream text.
func (n Number) Raw() string { return n.raw }

// Decimal applies the same parse-then-convert rule as String.
func (n Number) Decimal() decimal.NullDecimal {
	if !n.valid {
		return Absent
	}
	return parse(n.raw)
}

// Int64 returns the value as an integer column. Whole numbers written with a
// fraction ("6.0") are accepted; fractional or out of range values are absent.
func (n Number) Int64() sql.NullInt64 {
	if !n.valid {
		return sql.NullInt64{}
	}
	raw := strings.TrimSpace(n.raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return sql.NullInt64{Int64: v, Valid: true}
	}
	d := parse(raw)
	if !d.Valid || !d.Decimal.IsInteger() {
		return sql.NullInt64{}
	}
	b := d.Decimal.BigInt()
	if !b.IsInt64() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: b.Int64(), Valid: true}
}
