// Record schema handling. The schema is a fixed ordered list of named
// fields negotiated outside the core; record contents stay opaque to the
// protocol layer and are only interpreted by generators and simulations.

package comms

import "fmt"

// Record holds one evaluation input or output as named field values.
type Record map[string]float64

// Schema is the ordered list of field names for the records a generator
// produces. Order matters: positional record construction follows it, and
// it is part of the externally negotiated contract with the manager.
type Schema []string

// Has reports whether name is a schema field.
func (s Schema) Has(name string) bool {
	for _, f := range s {
		if f == name {
			return true
		}
	}
	return false
}

// NewRecord builds a Record from positional values following schema order.
// The value count must match the schema arity exactly; supplying no values
// is a caller error.
func (s Schema) NewRecord(values ...float64) (Record, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("schema: no field values given")
	}
	if len(values) != len(s) {
		return nil, fmt.Errorf("schema: got %d values for %d fields", len(values), len(s))
	}
	rec := make(Record, len(s))
	for i, name := range s {
		rec[name] = values[i]
	}
	return rec, nil
}

// NewRecordNamed builds a Record from named field values. Every name must be
// a schema field; supplying no values is a caller error.
func (s Schema) NewRecordNamed(values map[string]float64) (Record, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("schema: no field values given")
	}
	rec := make(Record, len(values))
	for name, v := range values {
		if !s.Has(name) {
			return nil, fmt.Errorf("schema: unknown field %q", name)
		}
		rec[name] = v
	}
	return rec, nil
}
