// Package tsdb implements the wire dialect used by InfluxDB 1.8-style
// time-series databases: query over HTTP with tabular JSON results, write
// via line protocol, grounded on the original tool's influxdb_client.py
// and utils.py (see SPEC_FULL.md §4.4).
package tsdb

import (
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/tsreplicate/internal/errors"
)

// FieldKind classifies a field's value so it can be formatted correctly in
// line protocol and matched against a job's configured field-type filter.
// It replaces the original tool's dynamic isinstance-based dispatch with a
// static tagged union (spec.md §9 Open Question i: classification follows
// the source's field-key schema, not value-shape sniffing).
type FieldKind int

const (
	FieldFloat FieldKind = iota
	FieldInteger
	FieldString
	FieldBoolean
)

// TypeName returns the job-descriptor type name ("numeric", "string",
// "boolean") this kind maps to, matching get_field_keys' float/integer →
// numeric collapse.
func (k FieldKind) TypeName() string {
	switch k {
	case FieldFloat, FieldInteger:
		return "numeric"
	case FieldBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// FieldValue is a single field's value tagged with its InfluxDB kind.
type FieldValue struct {
	Kind   FieldKind
	Float  float64
	Int    int64
	Str    string
	Bool   bool
}

// Float64Value constructs a float-kind FieldValue.
func Float64Value(v float64) FieldValue { return FieldValue{Kind: FieldFloat, Float: v} }

// IntValue constructs an integer-kind FieldValue.
func IntValue(v int64) FieldValue { return FieldValue{Kind: FieldInteger, Int: v} }

// StringValue constructs a string-kind FieldValue.
func StringValue(v string) FieldValue { return FieldValue{Kind: FieldString, Str: v} }

// BoolValue constructs a boolean-kind FieldValue.
func BoolValue(v bool) FieldValue { return FieldValue{Kind: FieldBoolean, Bool: v} }

// Format renders the value the way line protocol expects it: integers
// suffixed with "i", strings quoted and escaped, booleans as true/false.
func (v FieldValue) Format() string {
	switch v.Kind {
	case FieldFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case FieldInteger:
		return strconv.FormatInt(v.Int, 10) + "i"
	case FieldBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return escapeStringValue(v.Str)
	}
}

// Row is one point to be written: a set of tags, a set of fields, and an
// optional nanosecond timestamp (zero means "let the server assign now").
type Row struct {
	Tags      map[string]string
	Fields    map[string]FieldValue
	Timestamp int64
}

// EncodeLine renders one line-protocol line for measurement. At least one
// field is required, mirroring build_influxdb_line_protocol's invariant
// that a line with no fields is meaningless to InfluxDB.
func EncodeLine(measurement string, row Row) (string, error) {
	if len(row.Fields) == 0 {
		return "", errors.Newf("row for measurement %q has no fields", measurement)
	}

	var b strings.Builder
	b.WriteString(escapeIdentifier(measurement))

	if len(row.Tags) > 0 {
		keys := make([]string, 0, len(row.Tags))
		for k := range row.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(',')
			b.WriteString(escapeTagComponent(k))
			b.WriteByte('=')
			b.WriteString(escapeTagComponent(row.Tags[k]))
		}
	}

	b.WriteByte(' ')
	fieldKeys := make([]string, 0, len(row.Fields))
	for k := range row.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)
	for i, k := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeTagComponent(k))
		b.WriteByte('=')
		b.WriteString(row.Fields[k].Format())
	}

	if row.Timestamp != 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(row.Timestamp, 10))
	}

	return b.String(), nil
}

// escapeIdentifier quotes an identifier (measurement/database/field name)
// containing anything outside [A-Za-z0-9_], matching
// escape_influxdb_identifier.
func escapeIdentifier(id string) string {
	for _, r := range id {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return `"` + id + `"`
		}
	}
	return id
}

// escapeTagComponent escapes the space, comma, and equals characters that
// are structurally significant in line protocol tag/field keys and tag
// values.
func escapeTagComponent(s string) string {
	r := strings.NewReplacer(" ", `\ `, ",", `\,`, "=", `\=`)
	return r.Replace(s)
}

// escapeStringValue backslash-escapes backslashes and double quotes and
// wraps the result in double quotes, the line-protocol string literal
// format (distinct from the single-quoted literal InfluxQL uses in
// queries — see escapeQueryStringValue).
func escapeStringValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// escapeQueryStringValue escapes a string literal for use inside an
// InfluxQL WHERE/SELECT clause, matching escape_influxdb_string_value.
func escapeQueryStringValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
