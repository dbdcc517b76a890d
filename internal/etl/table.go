package etl

// Kind is a column's inferred scalar type.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDate
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindTime:
		return "timestamp"
	default:
		return "string"
	}
}

// Table is an in-memory slice of the extract: a header, a kind per column,
// and rows of string cells. Cells stay strings through the cleaning steps;
// kinds drive validity checks until the typed columnar rows are built.
type Table struct {
	Columns []string
	Kinds   []Kind
	Rows    [][]string
}

// Index returns the position of the named column, or -1 if absent.
func (t *Table) Index(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
