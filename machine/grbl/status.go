package grbl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// numericFields are the status report keys whose values are decimal numbers.
var numericFields = map[string]bool{
	"MPos": true,
	"WPos": true,
	"WCO":  true,
	"FS":   true,
	"F":    true,
	"Bf":   true,
	"Ln":   true,
	"Ov":   true,
}

// StatusReport is a decoded `<...>` status line.
type StatusReport struct {
	State    State
	SubState string

	// Raw is the unmodified mode segment.
	Raw string

	// Fields holds the tokens of every well-formed field, keyed by name.
	Fields map[string][]string

	// Values holds the parsed numbers of the numeric fields.
	Values map[string][]float64
}

// MalformedFieldError describes a status field that was skipped.
type MalformedFieldError struct {
	Field string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed status field %q: %v", e.Field, e.Err)
}
func (e *MalformedFieldError) Unwrap() error { return e.Err }

var errMissingSeparator = errors.New("missing ':' separator")

// ParseStatus decodes a status payload of the form `Mode|Key:v1,v2|...`.
// Surrounding angle brackets are optional.
//
// Parsing is best-effort: the returned report is never nil, and fields that
// could not be decoded are left out of it and reported in the returned error
// (one MalformedFieldError per field, joined).
func ParseStatus(data string) (*StatusReport, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "<")
	data = strings.TrimSuffix(data, ">")

	parts := strings.Split(data, "|")
	rep := &StatusReport{
		Raw:    parts[0],
		Fields: make(map[string][]string, len(parts)-1),
		Values: make(map[string][]float64),
	}
	rep.State, rep.SubState = ParseState(parts[0])

	var errs []error
	for _, s := range parts[1:] {
		key, val, ok := strings.Cut(s, ":")
		if !ok || key == "" {
			errs = append(errs, &MalformedFieldError{Field: s, Err: errMissingSeparator})
			continue
		}
		tokens := strings.Split(val, ",")
		if numericFields[key] {
			nums, err := parseFloats(tokens)
			if err != nil {
				errs = append(errs, &MalformedFieldError{Field: s, Err: err})
				continue
			}
			rep.Values[key] = nums
		}
		rep.Fields[key] = tokens
	}

	return rep, errors.Join(errs...)
}

func parseFloats(tokens []string) ([]float64, error) {
	res := make([]float64, len(tokens))
	var err error
	for i, t := range tokens {
		res[i], err = strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
