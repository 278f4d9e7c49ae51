package models

import (
	"fmt"
	"time"
)

// Column represents a table column with its properties
type Column struct {
	Name string
	// SQLType is the column definition used when creating the table
	SQLType string
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	ConstraintName   string
}

// TableCategory represents the category of a table
type TableCategory int

const (
	Dimension TableCategory = iota
	Fact
)

func (c TableCategory) String() string {
	if c == Fact {
		return "Fact"
	}
	return "Dimension"
}

// TableInfo represents the static schema of a generated table
type TableInfo struct {
	Name        string
	Category    TableCategory
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in schema order
func (ti TableInfo) ColumnNames() []string {
	names := make([]string, len(ti.Columns))
	for i, c := range ti.Columns {
		names[i] = c.Name
	}
	return names
}

// Table is a generated, column-oriented table
type Table interface {
	Info() TableInfo
	Len() int
	// AppendText appends the text encoding of row i to dst
	AppendText(dst []string, i int) []string
	// Values returns row i as driver values
	Values(i int) []interface{}
	// IntColumn returns an integer key column by name, or nil
	IntColumn(name string) []int64
}

// Date is a calendar date stored as days since 1970-01-01
type Date int32

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar date
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	u := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Date(u.Unix() / 86400)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// AddDays returns the date n days later
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// Cents is a currency amount with two implied decimal places
type Cents int64

// Float returns the amount in currency units
func (c Cents) Float() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Dataset holds the generated tables of one run. A nil table was not generated.
type Dataset struct {
	Customers    *CustomerTable
	Merchants    *MerchantTable
	Transactions *TransactionTable
	Loans        *LoanTable
}

// Tables returns the generated tables keyed by table name
func (ds *Dataset) Tables() map[string]Table {
	tables := make(map[string]Table)
	if ds.Customers != nil {
		tables[CustomersTable] = ds.Customers
	}
	if ds.Merchants != nil {
		tables[MerchantsTable] = ds.Merchants
	}
	if ds.Transactions != nil {
		tables[TransactionsTable] = ds.Transactions
	}
	if ds.Loans != nil {
		tables[LoansTable] = ds.Loans
	}
	return tables
}

// PopulationResult represents the result of writing a dataset
type PopulationResult struct {
	SuccessfulTables []string
	FailedTables     []string
	TotalRecords     int64
}

// VerificationResult represents the result of the verification process
type VerificationResult struct {
	Success    bool
	Violations map[string][]string
}
