// Package jsonpath resolves dotted path expressions against JSON documents.
//
// A path is a list of dot-separated segments. A segment is either a plain
// object key, or a key followed by a single predicate selecting one element
// of the array stored under that key:
//
//	repository.links.clone[name=http].href
//	changes[type=UPDATE].ref.displayId
//
// Predicates compare the element field against the literal as a string.
package jsonpath

import (
	"strings"
)

// segment is one parsed step of a path expression
type segment struct {
	raw         string
	key         string
	hasFilter   bool
	filterKey   string
	filterValue string
}

// Resolve walks doc along path and returns the value found at its end
func Resolve(doc Value, path string) (Value, error) {
	segments, err := parsePath(path)
	if err != nil {
		return Value{}, err
	}

	cursor := doc
	for _, seg := range segments {
		fields, ok := cursor.AsObject()
		if !ok {
			return Value{}, newPathError(TypeMismatch, path, seg.raw,
				"expected object, found %s", cursor.Kind())
		}

		next, ok := fields[seg.key]
		if !ok {
			return Value{}, newPathError(NotFound, path, seg.raw,
				"key %q not found", seg.key)
		}

		if !seg.hasFilter {
			cursor = next
			continue
		}

		items, ok := next.AsArray()
		if !ok {
			return Value{}, newPathError(TypeMismatch, path, seg.raw,
				"expected array under key %q, found %s", seg.key, next.Kind())
		}

		match, found := selectElement(items, seg.filterKey, seg.filterValue)
		if !found {
			return Value{}, newPathError(NotFound, path, seg.raw,
				"no element with %s=%s under key %q", seg.filterKey, seg.filterValue, seg.key)
		}
		cursor = match
	}

	return cursor, nil
}

// selectElement returns the first object whose field equals value
func selectElement(items []Value, field, value string) (Value, bool) {
	for _, item := range items {
		f, ok := item.Field(field)
		if !ok {
			continue
		}
		if s, ok := f.AsString(); ok && s == value {
			return item, true
		}
	}
	return Value{}, false
}

// Set stores v at path inside doc, creating intermediate objects as needed.
// Predicates are not supported on the write side.
func Set(doc Value, path string, v Value) (Value, error) {
	segments, err := parsePath(path)
	if err != nil {
		return Value{}, err
	}
	for _, seg := range segments {
		if seg.hasFilter {
			return Value{}, newPathError(MalformedPredicate, path, seg.raw,
				"predicates cannot be used to set values")
		}
	}
	return set(doc, path, segments, v)
}

func set(cursor Value, path string, segments []segment, v Value) (Value, error) {
	if len(segments) == 0 {
		return v, nil
	}

	if cursor.IsNull() {
		cursor = Object(nil)
	}
	fields, ok := cursor.AsObject()
	if !ok {
		return Value{}, newPathError(TypeMismatch, path, segments[0].raw,
			"expected object, found %s", cursor.Kind())
	}

	child, err := set(fields[segments[0].key], path, segments[1:], v)
	if err != nil {
		return Value{}, err
	}

	copied := make(map[string]Value, len(fields)+1)
	for k, f := range fields {
		copied[k] = f
	}
	copied[segments[0].key] = child
	return Object(copied), nil
}

func parsePath(path string) ([]segment, error) {
	parts := strings.Split(path, ".")
	segments := make([]segment, 0, len(parts))

	for _, part := range parts {
		seg, err := parseSegment(path, part)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return segments, nil
}

// parseSegment splits "key[field=value]" into its parts
func parseSegment(path, raw string) (segment, error) {
	open := strings.IndexByte(raw, '[')
	if open < 0 {
		if strings.IndexByte(raw, ']') >= 0 {
			return segment{}, newPathError(MalformedPredicate, path, raw, "unbalanced brackets")
		}
		return segment{raw: raw, key: raw}, nil
	}

	if strings.Count(raw, "[") != 1 || strings.Count(raw, "]") != 1 {
		return segment{}, newPathError(MalformedPredicate, path, raw,
			"expected exactly one predicate")
	}

	closing := strings.IndexByte(raw, ']')
	if closing < open || closing != len(raw)-1 {
		return segment{}, newPathError(MalformedPredicate, path, raw,
			"predicate must close the segment")
	}

	filter := raw[open+1 : closing]
	filterKey, filterValue, ok := strings.Cut(filter, "=")
	if !ok || filterKey == "" {
		return segment{}, newPathError(MalformedPredicate, path, raw,
			"predicate %q must have the form key=value", filter)
	}

	return segment{
		raw:         raw,
		key:         raw[:open],
		hasFilter:   true,
		filterKey:   filterKey,
		filterValue: filterValue,
	}, nil
}
