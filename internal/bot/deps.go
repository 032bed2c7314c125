package bot

// Deps is a read-only bag of named values supplied once at startup.
type Deps struct {
	values map[string]any
}

// NewDeps copies values into a new bag.
func NewDeps(values map[string]any) *Deps {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Deps{values: copied}
}

// Get returns the value stored under key. ok is false when key is absent.
func (d *Deps) Get(key string) (value any, ok bool) {
	if d == nil {
		return nil, false
	}
	value, ok = d.values[key]
	return value, ok
}

// Len returns the number of stored values.
func (d *Deps) Len() int {
	if d == nil {
		return 0
	}
	return len(d.values)
}
