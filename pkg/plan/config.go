package plan

import (
	"fmt"
	"maps"
	"slices"
)

// CSVDataset feeds one row per iteration into the variables of the threads in its
// scope. Column names come from the header row.
type CSVDataset struct{ node }

// CSVDataset fails immediately when path does not exist.
func (b *Builder) CSVDataset(path string) (*CSVDataset, error) {
	if err := b.requireFile(path); err != nil {
		return nil, err
	}
	n, err := b.newNode(KindCSVDataset, CSVDatasetArgs{Path: path}, nil)
	if err != nil {
		return nil, err
	}
	return &CSVDataset{node: n}, nil
}

// Vars is a plan-wide set of string variables, visible to every thread as ${key}.
type Vars struct {
	node
	values map[string]string
}

// Vars builds a variable set seeded from initial, applied in key order.
func (b *Builder) Vars(initial map[string]any) (*Vars, error) {
	n, err := b.newNode(KindVars, VarsArgs{}, nil)
	if err != nil {
		return nil, err
	}
	v := &Vars{node: n, values: map[string]string{}}
	for _, key := range slices.Sorted(maps.Keys(initial)) {
		if v, err = v.Set(key, initial[key]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Set returns a variable set that also maps key to the string form of value. Keys
// must be strings; values of any type are converted with fmt.Sprint.
func (v *Vars) Set(key, value any) (*Vars, error) {
	k, ok := key.(string)
	if !ok {
		return nil, typeErrorf("key", key, "keys must be strings, got %s", typeName(key))
	}
	s := fmt.Sprint(value)
	n, err := v.mutate(SetVar{Key: k, Value: s})
	if err != nil {
		return nil, err
	}
	values := maps.Clone(v.values)
	values[k] = s
	return &Vars{node: n, values: values}, nil
}

// Get returns the stored value of key.
func (v *Vars) Get(key string) (string, bool) {
	s, ok := v.values[key]
	return s, ok
}

// Values returns a copy of every stored variable.
func (v *Vars) Values() map[string]string { return maps.Clone(v.values) }
