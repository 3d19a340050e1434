// Package mapping evaluates declarative rule schemas against a metadata tree,
// producing a structured result that is later decoded into an embed.
package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/embedscraper/internal/metadata"
)

// Kind discriminates the variants of a Rule.
type Kind uint8

// Rule kinds.
const (
	KindScalar Kind = iota + 1
	KindNested
	KindGrouped
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindNested:
		return "nested"
	case KindGrouped:
		return "grouped"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Transform converts the raw scalar picked by a rule into its output value.
// Returning a nil value leaves the field undefined. Transforms that perform
// I/O must honour ctx.
type Transform func(ctx context.Context, raw string) (any, error)

// Schema maps output field names to rules.
type Schema map[string]Rule

// Rule describes how one output field is extracted.
type Rule struct {
	Kind Kind

	// Scalar rules.
	Paths     []metadata.Path
	MaxValues int
	Transform Transform

	// Nested and grouped rules.
	Fields Schema

	// Grouped rules.
	MaxItems int
}

// Scalar builds a scalar rule that reads the first value found at paths.
func Scalar(paths ...string) Rule {
	parsed := make([]metadata.Path, len(paths))
	for i, p := range paths {
		parsed[i] = metadata.MustParsePath(p)
	}
	return Rule{Kind: KindScalar, Paths: parsed, MaxValues: 1}
}

// WithTransform returns a copy of r applying fn to the picked value.
func (r Rule) WithTransform(fn Transform) Rule {
	r.Transform = fn
	return r
}

// WithMaxValues returns a copy of r keeping at most n candidate values.
func (r Rule) WithMaxValues(n int) Rule {
	r.MaxValues = n
	return r
}

// Nested builds a rule producing an object from a sub-schema.
func Nested(fields Schema) Rule {
	return Rule{Kind: KindNested, Fields: fields}
}

// Grouped builds a rule producing up to maxItems records whose fields are
// aligned by position.
func Grouped(maxItems int, fields Schema) Rule {
	return Rule{Kind: KindGrouped, Fields: fields, MaxItems: maxItems}
}

// Validate checks that a schema is well formed.
func Validate(schema Schema) error {
	var errs []error
	for name, rule := range schema {
		if err := validateRule(rule, false); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func validateRule(rule Rule, inGroup bool) error {
	switch rule.Kind {
	case KindScalar:
		if len(rule.Paths) == 0 {
			return errors.New("scalar rule has no paths")
		}
		return nil
	case KindNested, KindGrouped:
		if inGroup {
			return fmt.Errorf("%s rule inside a grouped rule", rule.Kind)
		}
		if len(rule.Fields) == 0 {
			return fmt.Errorf("%s rule has no fields", rule.Kind)
		}
		if rule.Kind == KindGrouped && rule.MaxItems <= 0 {
			return errors.New("grouped rule needs a positive item limit")
		}
		var errs []error
		for name, child := range rule.Fields {
			if err := validateRule(child, rule.Kind == KindGrouped); err != nil {
				errs = append(errs, fmt.Errorf("field %q: %w", name, err))
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("unknown rule %s", rule.Kind)
	}
}
