package domain

// Columns names the product table columns the scorer reads
type Columns struct {
	Declaration string
	Weight      string
	Cost        string // optional
	Status      string // optional; rows are filtered only when the column exists
	Retain      []string
}

// Table is a delimited text table held in memory
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is a single table record keyed by column name
type Row struct {
	Line   int // 1-based line in the source file, header is line 1
	Values map[string]string
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Product is a product row prepared for scoring
type Product struct {
	Row         Row
	Declaration string
	Weight      float64
	Cost        float64
	HasCost     bool
}

// ScoreResult holds every derived value for one product
type ScoreResult struct {
	Product                   *Product
	Row                       Row
	Score                     float64
	HasScore                  bool
	EstimatedConsumptionGrams float64
	HasConsumption            bool
	GramsPerDollar            float64
	HasGramsPerDollar         bool
	Err                       error
}

// RunSummary reports what happened to the rows of a batch
type RunSummary struct {
	RunID    string
	RowsRead int
	Filtered int
	Scored   int
	Failed   int
}
