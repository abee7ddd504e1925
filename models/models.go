package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned by DecodeNewStudent when the body is absent or is
// not a single JSON object.
var ErrNotObject = errors.New("request body is not a JSON object")

// Student represents a student record
type Student struct {
	ID      int    `json:"id"`      // Unique, assigned by the store
	Name    string `json:"name"`    // Student name
	Year    string `json:"year"`    // Year level, e.g. "1st Year"
	Section string `json:"section"` // Section name
}

// NewStudent is the body of an add request. A nil field means the key was
// absent; a present key always yields a non-nil field, even for null.
type NewStudent struct {
	Name    *string `json:"name"`
	Year    *string `json:"year"`
	Section *string `json:"section"`
}

// DecodeNewStudent reads an add request body. Only key presence is checked:
// values of any JSON type are kept as text (strings as-is, null as "",
// numbers, booleans, arrays and objects as their JSON text).
func DecodeNewStudent(body []byte) (NewStudent, error) {
	var in NewStudent

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return in, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return in, ErrNotObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return in, fmt.Errorf("%w: trailing data", ErrNotObject)
	}

	for key, dst := range map[string]**string{"name": &in.Name, "year": &in.Year, "section": &in.Section} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		text, err := freeText(v)
		if err != nil {
			return in, fmt.Errorf("field %s: %w", key, err)
		}
		*dst = &text
	}
	return in, nil
}

func freeText(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Missing returns the required keys absent from n, in declaration order.
func (n NewStudent) Missing() []string {
	var missing []string
	if n.Name == nil {
		missing = append(missing, "name")
	}
	if n.Year == nil {
		missing = append(missing, "year")
	}
	if n.Section == nil {
		missing = append(missing, "section")
	}
	return missing
}

// Build turns n into a Student with the given id. Absent fields become "".
func (n NewStudent) Build(id int) Student {
	return Student{
		ID:      id,
		Name:    deref(n.Name),
		Year:    deref(n.Year),
		Section: deref(n.Section),
	}
}

// NewStudentOf is a convenience for callers that hold plain strings
// (seeding, spreadsheet import, tests).
func NewStudentOf(name, year, section string) NewStudent {
	return NewStudent{Name: &name, Year: &year, Section: &section}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
