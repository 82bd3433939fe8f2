package utf

// Binding maps column names onto setters of a target type T. Each entity
// decoded from a table declares one Binding listing the columns it knows.
type Binding[T any] map[string]func(*T, Value)

// Extra receives cells whose column has no setter in the Binding.
type Extra[T any] func(dst *T, column string, v Value)

// Bind decodes every row of t into a T. Fields whose column is absent keep
// their zero value; columns without a setter are passed to extra when it is
// non-nil.
func Bind[T any](t *Table, b Binding[T], extra Extra[T]) []T {
	setters := make([]func(*T, Value), len(t.Fields))
	for i := range t.Fields {
		setters[i] = b[t.Fields[i].Name]
	}

	out := make([]T, len(t.Rows))
	for r, row := range t.Rows {
		dst := &out[r]
		for i, v := range row {
			switch {
			case setters[i] != nil:
				setters[i](dst, v)
			case extra != nil:
				extra(dst, t.Fields[i].Name, v)
			}
		}
	}
	return out
}
