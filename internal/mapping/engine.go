package mapping

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/embedscraper/internal/metadata"
)

// DefaultGroupConcurrency bounds concurrent transforms inside a grouped rule.
const DefaultGroupConcurrency = 4

// Engine evaluates schemas. The zero value is ready to use.
type Engine struct {
	// GroupConcurrency bounds how many grouped records are transformed at once.
	GroupConcurrency int
}

// Evaluate runs schema against tree with a zero Engine.
func Evaluate(ctx context.Context, schema Schema, tree metadata.Value) (map[string]any, error) {
	return Engine{}.Evaluate(ctx, schema, tree)
}

// Evaluate runs schema against tree and returns the cleaned result. Fields
// without any candidate value are absent from the result, never nil.
func (e Engine) Evaluate(ctx context.Context, schema Schema, tree metadata.Value) (map[string]any, error) {
	out, err := e.evaluateSchema(ctx, schema, tree)
	if err != nil {
		return nil, err
	}
	Cleanup(out)
	return out, nil
}

func (e Engine) evaluateSchema(ctx context.Context, schema Schema, tree metadata.Value) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	for _, name := range sortedNames(schema) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluate schema: %w", err)
		}
		rule := schema[name]
		switch rule.Kind {
		case KindScalar:
			value, ok, err := e.evaluateScalar(ctx, rule, tree)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			if ok {
				out[name] = value
			}
		case KindNested:
			child, err := e.evaluateSchema(ctx, rule.Fields, tree)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out[name] = child
		case KindGrouped:
			items, err := e.evaluateGrouped(ctx, rule, tree)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out[name] = items
		default:
			return nil, fmt.Errorf("field %q: unknown rule %s", name, rule.Kind)
		}
	}
	return out, nil
}

func (e Engine) evaluateScalar(ctx context.Context, rule Rule, tree metadata.Value) (any, bool, error) {
	values := Candidates(tree, rule.Paths)
	if rule.MaxValues > 0 && len(values) > rule.MaxValues {
		values = values[:rule.MaxValues]
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	out, err := apply(ctx, rule.Transform, values[0])
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (e Engine) evaluateGrouped(ctx context.Context, rule Rule, tree metadata.Value) ([]any, error) {
	names := sortedNames(rule.Fields)
	columns := make(map[string][]string, len(names))
	longest := 0
	for _, name := range names {
		field := rule.Fields[name]
		if field.Kind != KindScalar {
			return nil, fmt.Errorf("grouped field %q must be scalar, got %s", name, field.Kind)
		}
		column := Candidates(tree, field.Paths)
		columns[name] = column
		if len(column) > longest {
			longest = len(column)
		}
	}

	count := longest
	if rule.MaxItems >= 0 && count > rule.MaxItems {
		count = rule.MaxItems
	}
	records := make([]map[string]any, count)

	limit := e.GroupConcurrency
	if limit <= 0 {
		limit = DefaultGroupConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range records {
		g.Go(func() error {
			record := make(map[string]any, len(names))
			for _, name := range names {
				column := columns[name]
				if i >= len(column) {
					continue
				}
				value, err := apply(gctx, rule.Fields[name].Transform, column[i])
				if err != nil {
					return fmt.Errorf("record %d field %q: %w", i, name, err)
				}
				record[name] = value
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]any, count)
	for i, record := range records {
		items[i] = record
	}
	return items, nil
}

// Candidates returns the non-empty scalar values found at paths, in path
// order and document order within each path.
func Candidates(tree metadata.Value, paths []metadata.Path) []string {
	var out []string
	for _, p := range paths {
		for _, v := range metadata.Resolve(tree, p) {
			s, ok := v.Str()
			if !ok || s == "" {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

func apply(ctx context.Context, fn Transform, raw string) (any, error) {
	if fn == nil {
		return raw, nil
	}
	out, err := fn(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return out, nil
}

func sortedNames(schema Schema) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
