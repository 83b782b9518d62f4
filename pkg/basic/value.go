package basic

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind is Number or Str.
type ValueKind int

const (
	NumberKind ValueKind = iota
	StringKind
)

func (k ValueKind) String() string {
	if k == StringKind {
		return "string"
	}
	return "number"
}

// Value is a BASIC value: a float64 number or a string.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: NumberKind, num: f}
}

// Str returns a string value.
func Str(s string) Value {
	return Value{kind: StringKind, str: s}
}

// Bool returns 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsString() bool { return v.kind == StringKind }

// Num returns the numeric payload (0 for strings).
func (v Value) Num() float64 { return v.num }

// Text returns the string payload ("" for numbers).
func (v Value) Text() string { return v.str }

// IsIntegral reports whether a number equals its truncation.
func (v Value) IsIntegral() bool {
	return v.kind == NumberKind && v.num == math.Trunc(v.num)
}

// Truthy is the IF condition test: non-zero numbers, non-empty strings.
func (v Value) Truthy() bool {
	if v.kind == StringKind {
		return v.str != ""
	}
	return v.num != 0
}

// String returns the canonical text: strings verbatim, numbers via formatNumber.
func (v Value) String() string {
	if v.kind == StringKind {
		return v.str
	}
	return formatNumber(v.num)
}

// formatNumber prints integral values without a decimal point and others in
// the shortest form that round-trips.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		if f == 0 {
			return "0" // auch -0
		}
		return strconv.FormatInt(int64(f), 10)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	return strings.ToUpper(s)
}

// parseNumberPrefix reads the longest numeric prefix of s the way VAL does.
// ok is false when s does not start with a number.
func parseNumberPrefix(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t")
	n := scanNumber(s)
	if n == 0 {
		return 0, false
	}
	return parseDecimal(s[:n])
}

// scanNumber returns the length of the decimal literal at the start of s:
// optional sign, digits with at most one dot, optional exponent. 0 when
// there is none.
func scanNumber(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := 0
	seenDot := false
	for end < len(s) {
		ch := s[end]
		if isDigit(ch) {
			digits++
			end++
			continue
		}
		if ch == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if digits == 0 {
		return 0
	}
	// Exponent nur übernehmen, wenn Ziffern folgen
	if end < len(s) && (s[end] == 'E' || s[end] == 'e') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '-' || s[exp] == '+') {
			exp++
		}
		if exp < len(s) && isDigit(s[exp]) {
			for exp < len(s) && isDigit(s[exp]) {
				exp++
			}
			end = exp
		}
	}
	return end
}

func parseDecimal(lit string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(lit, "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseInputNumber accepts a whole answer to INPUT as a number. Only a
// decimal literal counts; NAN or INF ask again.
func parseInputNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if scanNumber(s) != len(s) {
		return 0, false
	}
	return parseDecimal(s)
}
