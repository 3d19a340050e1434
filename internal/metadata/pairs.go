package metadata

// Pairs is an ordered multi-map of raw metadata keys (for example meta tag
// names) to every value seen for them, in encounter order.
type Pairs struct {
	keys   []string
	values map[string][]string
}

// NewPairs returns an empty Pairs.
func NewPairs() *Pairs {
	return &Pairs{values: make(map[string][]string)}
}

// Add appends value under key, keeping earlier values for the same key.
func (p *Pairs) Add(key, value string) {
	if key == "" {
		return
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], value)
}

// MergeMissing copies every key of src that p does not have yet, with all
// of its values. Keys p already has are left alone, so earlier writers win.
// It returns the number of keys copied.
func (p *Pairs) MergeMissing(src *Pairs) int {
	if src == nil {
		return 0
	}
	n := 0
	for _, k := range src.keys {
		if p.Has(k) {
			continue
		}
		for _, v := range src.values[k] {
			p.Add(k, v)
		}
		n++
	}
	return n
}

// Has reports whether key has at least one value.
func (p *Pairs) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the keys in first-seen order.
func (p *Pairs) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Values returns the values recorded for key.
func (p *Pairs) Values(key string) []string {
	return p.values[key]
}

// Len returns the number of distinct keys.
func (p *Pairs) Len() int {
	return len(p.keys)
}
