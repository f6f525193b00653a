package backend

import (
	"strconv"
	"strings"
)

// legacyOffset is the base older deployments added to textual order codes
// ("ORD-1012" was order 12).
const legacyOffset = 1000

type numberKind int

const (
	numberNull numberKind = iota
	numberInt
	numberText
)

// RawNumber is an order number as read from the store: absent, a native
// integer, or a legacy textual encoding.
type RawNumber struct {
	kind numberKind
	n    int64
	text string
}

// NullNumber is the absent value.
func NullNumber() RawNumber { return RawNumber{} }

// IntNumber wraps a native integer value.
func IntNumber(n int64) RawNumber { return RawNumber{kind: numberInt, n: n} }

// TextNumber wraps a textual value such as "12" or "ORD-1012".
func TextNumber(s string) RawNumber {
	if strings.TrimSpace(s) == "" {
		return NullNumber()
	}
	return RawNumber{kind: numberText, text: s}
}

// IsNull reports whether no value was present.
func (r RawNumber) IsNull() bool { return r.kind == numberNull }

// Int returns the value as an integer when it is one, or when the text is a
// plain decimal integer.
func (r RawNumber) Int() (int64, bool) {
	switch r.kind {
	case numberInt:
		return r.n, true
	case numberText:
		n, err := strconv.ParseInt(strings.TrimSpace(r.text), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Next returns the candidate number that follows r.
//
// Integers are incremented as-is. Text takes the first run of digits; runs of
// 1000 or more are treated as offset codes and have the offset removed first,
// so "ORD-1012" and "12" both yield 13. Null or digit-free values yield 1.
func (r RawNumber) Next() int64 {
	switch r.kind {
	case numberInt:
		if r.n < 0 {
			return 1
		}
		return r.n + 1
	case numberText:
		digits := firstDigitRun(r.text)
		if digits == "" {
			return 1
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 1
		}
		if n >= legacyOffset {
			return n - legacyOffset + 1
		}
		return n + 1
	default:
		return 1
	}
}

func (r RawNumber) String() string {
	switch r.kind {
	case numberInt:
		return strconv.FormatInt(r.n, 10)
	case numberText:
		return r.text
	default:
		return "null"
	}
}

func firstDigitRun(s string) string {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return ""
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[start:end]
}
