package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Optional records whether a JSON field was present and whether it was an
// explicit null, so PATCH handlers can overlay only the fields a caller sent.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// Present reports a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Or returns the sent value, or cur when the field was absent or null.
func (o Optional[T]) Or(cur T) T {
	if o.Present() {
		return o.Value
	}
	return cur
}

// OrNullable returns cur when the field was absent, nil for an explicit null
// and the sent value otherwise.
func (o Optional[T]) OrNullable(cur *T) *T {
	if !o.Set {
		return cur
	}
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// Some builds a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// FlexInt64 accepts a JSON number or a numeric string. Fractional values are
// rejected.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n != math.Trunc(n) {
		return fmt.Errorf("not an integer: %s", string(b))
	}
	*f = FlexInt64(n)
	return nil
}

// FlexString accepts a JSON string or number and keeps its text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("not a string or number: %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

// IDList is a lenient list of user ids. Entries that are not positive
// integers (as numbers or numeric strings) are dropped, and a non-array value
// decodes to an empty list.
type IDList []int64

func (l *IDList) UnmarshalJSON(b []byte) error {
	*l = IDList{}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, item := range raw {
		var id FlexInt64
		if err := id.UnmarshalJSON(item); err != nil || id <= 0 {
			continue
		}
		*l = append(*l, int64(id))
	}
	return nil
}

func trimJoin(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Truthy decodes any JSON value by truthiness: false, 0, "" and null are
// false, everything else is true.
type Truthy bool

func (t *Truthy) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = Truthy(x)
	case float64:
		*t = x != 0
	case string:
		*t = x != ""
	default:
		*t = true
	}
	return nil
}
