package shape

import (
	"math"
	"strconv"
	"strings"
)

// Style tags which representation a record arrived in.
type Style int

const (
	// StyleAttribute marks typed objects decoded from the locations API.
	StyleAttribute Style = iota
	// StyleMapping marks loosely typed JSON objects.
	StyleMapping
)

func (s Style) String() string {
	if s == StyleAttribute {
		return "attribute"
	}
	return "mapping"
}

// Record is the extraction interface shared by both record representations.
// Get never fails; a missing field yields a null Value.
type Record interface {
	Style() Style
	Get(key string) Value
}

// Kind describes what a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindObject
)

// Value is a single field read from a Record.
type Value struct {
	kind Kind
	str  string
	num  float64
	obj  Record
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Object(r Record) Value {
	if r == nil {
		return Value{}
	}
	return Value{kind: KindObject, obj: r}
}

func (v Value) Kind() Kind { return v.kind }

// Empty reports whether v would be skipped by a first-match-wins probe.
func (v Value) Empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Str returns the string content. Numbers are formatted so ids given as
// numbers still read as text.
func (v Value) Str() (string, bool) {
	switch v.kind {
	case KindString:
		if strings.TrimSpace(v.str) == "" {
			return "", false
		}
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	}
	return "", false
}

// Int returns the integer content of a number or a numeric string. Fractional
// and out-of-range values are rejected.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindNumber:
		return wholeNumber(v.num)
	case KindString:
		text := strings.TrimSpace(v.str)
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false
		}
		return wholeNumber(f)
	}
	return 0, false
}

// wholeNumber accepts f only when it is an integer within int64 range.
func wholeNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Float returns the numeric content.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	}
	return 0, false
}

// Record returns the nested record when v holds an object.
func (v Value) Record() (Record, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Path walks nested objects and returns the value at the end, or null.
func Path(r Record, keys ...string) Value {
	cur := r
	for i, k := range keys {
		if cur == nil {
			return Null()
		}
		v := cur.Get(k)
		if i == len(keys)-1 {
			return v
		}
		next, ok := v.Record()
		if !ok {
			return Null()
		}
		cur = next
	}
	return Null()
}

// First returns the first non-empty value among keys.
func First(r Record, keys []string) Value {
	if r == nil {
		return Null()
	}
	for _, k := range keys {
		if v := r.Get(k); !v.Empty() {
			return v
		}
	}
	return Null()
}

// FirstString returns the first key whose value reads as non-empty text.
func FirstString(r Record, keys []string) string {
	if r == nil {
		return ""
	}
	for _, k := range keys {
		if s, ok := r.Get(k).Str(); ok {
			return s
		}
	}
	return ""
}

// FirstInt returns the first key whose value reads as an integer.
func FirstInt(r Record, keys []string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	for _, k := range keys {
		if n, ok := r.Get(k).Int(); ok {
			return n, true
		}
	}
	return 0, false
}
