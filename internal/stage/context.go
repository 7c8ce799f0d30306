package stage

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Context is the progressively enriched bag of artifacts handed from step to
// step.
type Context map[string]any

// Merge returns a new Context holding every key of c and update. Keys present
// in both take the value from update. Neither input is modified.
func (c Context) Merge(update Context) Context {
	out := make(Context, len(c)+len(update))
	maps.Copy(out, c)
	maps.Copy(out, update)
	return out
}

// Clone returns a shallow copy of c.
func (c Context) Clone() Context {
	return maps.Clone(c)
}

// Missing returns the keys from required that c does not hold, sorted.
func (c Context) Missing(required []string) []string {
	var missing []string
	for _, key := range required {
		if v, ok := c[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	slices.Sort(missing)
	return missing
}

// Keys returns the sorted key set.
func (c Context) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Decode projects the context onto T through its JSON field tags. Values may
// be typed structs produced by an earlier step in this process or generic
// maps reloaded from disk; both decode to the same T.
func Decode[T any](in Context) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encode context: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode context into %T: %w", out, err)
	}
	return out, nil
}
