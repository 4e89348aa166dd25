package record

// Record is a single flat data row keyed by field id.
type Record map[string]any

// Get returns the value stored under field and whether it is non-null.
// A missing key and an explicit nil both report false.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	if !ok || IsNull(v) {
		return nil, false
	}
	return v, true
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a new record holding only the listed fields.
// Fields absent from r are set to nil so every projected row has the same shape.
func (r Record) Project(fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		out[f] = r[f]
	}
	return out
}

// CloneAll returns shallow copies of every record in rows.
func CloneAll(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Normalize converts driver-specific representations into the value kinds
// the engine understands. []byte becomes string; everything else is kept.
func Normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}

// FromMap builds a Record from a generic map, normalising every value.
func FromMap(m map[string]any) Record {
	out := make(Record, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}
