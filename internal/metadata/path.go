package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexAll marks a segment that broadcasts over every element of an array.
const IndexAll = -1

// Segment is one step of a Path. When the value reached through Key is an
// array, Index selects a single element, or IndexAll broadcasts the rest of
// the path over every element.
type Segment struct {
	Key   string
	Index int
}

// Path is a parsed dot-separated lookup such as "og.image.width",
// "og.image[0].url" or "og.image[*].url".
type Path struct {
	raw      string
	segments []Segment
}

// ParsePath parses a dotted path with optional [n] or [*] annotations.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(raw, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("parse path %q: %w", raw, err)
		}
		segments = append(segments, seg)
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParsePath is ParsePath for paths fixed at compile time.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if part == "" || strings.ContainsRune(part, ']') {
			return Segment{}, fmt.Errorf("invalid segment %q", part)
		}
		return Segment{Key: part, Index: IndexAll}, nil
	}
	if open == 0 || !strings.HasSuffix(part, "]") {
		return Segment{}, fmt.Errorf("invalid segment %q", part)
	}
	key := part[:open]
	annotation := part[open+1 : len(part)-1]
	if annotation == "*" {
		return Segment{Key: key, Index: IndexAll}, nil
	}
	idx, err := strconv.Atoi(annotation)
	if err != nil || idx < 0 {
		return Segment{}, fmt.Errorf("invalid index in segment %q", part)
	}
	return Segment{Key: key, Index: idx}, nil
}

// String returns the path as written.
func (p Path) String() string { return p.raw }

// Segments returns the parsed segments.
func (p Path) Segments() []Segment { return p.segments }

// Resolve returns every value reachable from root through p, in document
// order. Arrays met along the way are indexed or broadcast according to the
// segment annotation; a terminal array yields each of its elements. Missing
// keys never fail, they simply contribute nothing. The result is never nil.
func Resolve(root Value, p Path) []Value {
	out := make([]Value, 0, 1)
	if len(p.segments) == 0 {
		return out
	}
	return walk(root, p.segments, out)
}

func walk(v Value, segments []Segment, out []Value) []Value {
	if len(segments) == 0 {
		if v.kind == KindArray {
			for _, item := range v.items {
				out = walk(item, nil, out)
			}
			return out
		}
		return append(out, v)
	}
	switch v.kind {
	case KindObject:
		seg := segments[0]
		child, ok := v.obj[seg.Key]
		if !ok {
			return out
		}
		rest := segments[1:]
		if child.kind != KindArray {
			return walk(child, rest, out)
		}
		if seg.Index != IndexAll {
			if seg.Index < len(child.items) {
				return walk(child.items[seg.Index], rest, out)
			}
			return out
		}
		for _, item := range child.items {
			out = walk(item, rest, out)
		}
		return out
	case KindArray:
		for _, item := range v.items {
			out = walk(item, segments, out)
		}
		return out
	case KindScalar, KindInvalid:
		return out
	default:
		return out
	}
}
