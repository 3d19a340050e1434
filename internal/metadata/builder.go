package metadata

import "strings"

// NamespaceSeparator splits raw keys such as "og:image:width" into segments.
const NamespaceSeparator = ":"

type member struct {
	rest   string
	values []string
}

// Build turns raw pairs into a nested tree.
//
// The first segment of every key becomes a top-level field. Keys sharing a
// first segment form a namespace object whose sub-keys are grouped by their
// next segment. A group in which any key repeats becomes an array of
// per-index records; otherwise it becomes a scalar or an object. A key that
// is both a value and a namespace (og:image and og:image:width) keeps its own
// value under its own name, so the image URL is found at og.image.image.
func Build(pairs *Pairs) Value {
	root := make(map[string]Value)
	if pairs == nil {
		return Object(root)
	}

	var heads []string
	groups := make(map[string][]member)
	for _, key := range pairs.keys {
		head, rest, _ := strings.Cut(key, NamespaceSeparator)
		if _, ok := groups[head]; !ok {
			heads = append(heads, head)
		}
		groups[head] = append(groups[head], member{rest: rest, values: pairs.values[key]})
	}

	for _, head := range heads {
		members := groups[head]
		if len(members) == 1 && members[0].rest == "" {
			root[head] = scalarOrList(members[0].values)
			continue
		}
		root[head] = buildNamespace(head, members)
	}
	return Object(root)
}

func buildNamespace(head string, members []member) Value {
	var bases []string
	related := make(map[string][]member)
	for _, m := range members {
		rest := m.rest
		if rest == "" {
			rest = head
		}
		base, _, _ := strings.Cut(rest, NamespaceSeparator)
		if _, ok := related[base]; !ok {
			bases = append(bases, base)
		}
		related[base] = append(related[base], member{rest: rest, values: m.values})
	}

	fields := make(map[string]Value, len(bases))
	for _, base := range bases {
		fields[base] = buildGroup(base, related[base])
	}
	return Object(fields)
}

func buildGroup(base string, members []member) Value {
	longest := 0
	for _, m := range members {
		if len(m.values) > longest {
			longest = len(m.values)
		}
	}

	if longest > 1 {
		records := make([]Value, longest)
		for i := range records {
			record := make(map[string]Value, len(members))
			for _, m := range members {
				if i < len(m.values) {
					record[label(base, m.rest)] = String(m.values[i])
				}
			}
			records[i] = Object(record)
		}
		return Array(records...)
	}

	if len(members) == 1 && members[0].rest == base {
		return scalarOrList(members[0].values)
	}

	record := make(map[string]Value, len(members))
	for _, m := range members {
		if len(m.values) > 0 {
			record[label(base, m.rest)] = String(m.values[0])
		}
	}
	return Object(record)
}

func label(base, rest string) string {
	if rest == base {
		return base
	}
	return strings.TrimPrefix(rest, base+NamespaceSeparator)
}

func scalarOrList(values []string) Value {
	switch len(values) {
	case 0:
		return String("")
	case 1:
		return String(values[0])
	default:
		items := make([]Value, len(values))
		for i, v := range values {
			items[i] = String(v)
		}
		return Array(items...)
	}
}
