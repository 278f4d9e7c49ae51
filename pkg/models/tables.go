package models

import "strconv"

// Table names, as written to every sink
const (
	CustomersTable    = "dim_customers"
	MerchantsTable    = "dim_merchants"
	TransactionsTable = "fact_transactions"
	LoansTable        = "fact_loans"
)

// Merchant categories
const (
	CategoryGambling      = "Gambling"
	CategoryEssentials    = "Essentials"
	CategoryElectronics   = "Electronics"
	CategoryEntertainment = "Entertainment"
)

// Categories is the closed set of merchant categories
var Categories = []string{CategoryGambling, CategoryEssentials, CategoryElectronics, CategoryEntertainment}

// LoanStatus is the lifecycle state of a loan
type LoanStatus uint8

const (
	LoanActive LoanStatus = iota
	LoanClosed
	LoanDefaulted
)

// LoanStatuses lists every loan status in declaration order
var LoanStatuses = []LoanStatus{LoanActive, LoanClosed, LoanDefaulted}

func (s LoanStatus) String() string {
	switch s {
	case LoanActive:
		return "Active"
	case LoanClosed:
		return "Closed"
	case LoanDefaulted:
		return "Defaulted"
	}
	return "LoanStatus(" + strconv.Itoa(int(s)) + ")"
}

func boolText(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// CustomerTable is the customer dimension. Country holds indexes into Countries.
type CustomerTable struct {
	Countries      []string
	CustID         []int64
	Name           []string
	Country        []uint8
	AnnualIncome   []int64
	JobTenureYears []int64
	IsBankEmployee []bool
	JoinDate       []Date
}

// NewCustomerTable allocates every column for n rows
func NewCustomerTable(n int, countries []string) *CustomerTable {
	return &CustomerTable{
		Countries:      countries,
		CustID:         make([]int64, n),
		Name:           make([]string, n),
		Country:        make([]uint8, n),
		AnnualIncome:   make([]int64, n),
		JobTenureYears: make([]int64, n),
		IsBankEmployee: make([]bool, n),
		JoinDate:       make([]Date, n),
	}
}

var customerInfo = TableInfo{
	Name:     CustomersTable,
	Category: Dimension,
	Columns: []Column{
		{Name: "cust_id", SQLType: "BIGINT NOT NULL"},
		{Name: "name", SQLType: "VARCHAR(255) NOT NULL"},
		{Name: "country", SQLType: "VARCHAR(16) NOT NULL"},
		{Name: "annual_income", SQLType: "BIGINT NOT NULL"},
		{Name: "job_tenure_years", SQLType: "INT NOT NULL"},
		{Name: "is_bank_employee", SQLType: "SMALLINT NOT NULL"},
		{Name: "join_date", SQLType: "DATE NOT NULL"},
	},
	PrimaryKey: "cust_id",
}

func (t *CustomerTable) Info() TableInfo { return customerInfo }
func (t *CustomerTable) Len() int        { return len(t.CustID) }

func (t *CustomerTable) AppendText(dst []string, i int) []string {
	return append(dst,
		itoa(t.CustID[i]),
		t.Name[i],
		t.Countries[t.Country[i]],
		itoa(t.AnnualIncome[i]),
		itoa(t.JobTenureYears[i]),
		boolText(t.IsBankEmployee[i]),
		t.JoinDate[i].String(),
	)
}

func (t *CustomerTable) IntColumn(name string) []int64 {
	if name == "cust_id" {
		return t.CustID
	}
	return nil
}

func (t *CustomerTable) Values(i int) []interface{} {
	employee := 0
	if t.IsBankEmployee[i] {
		employee = 1
	}
	return []interface{}{
		t.CustID[i],
		t.Name[i],
		t.Countries[t.Country[i]],
		t.AnnualIncome[i],
		t.JobTenureYears[i],
		employee,
		t.JoinDate[i].Time(),
	}
}

// MerchantTable is the merchant dimension
type MerchantTable struct {
	MID      []int64
	MName    []string
	Category []string
}

var merchantInfo = TableInfo{
	Name:     MerchantsTable,
	Category: Dimension,
	Columns: []Column{
		{Name: "m_id", SQLType: "BIGINT NOT NULL"},
		{Name: "m_name", SQLType: "VARCHAR(255) NOT NULL"},
		{Name: "category", SQLType: "VARCHAR(32) NOT NULL"},
	},
	PrimaryKey: "m_id",
}

func (t *MerchantTable) Info() TableInfo { return merchantInfo }
func (t *MerchantTable) Len() int        { return len(t.MID) }

func (t *MerchantTable) AppendText(dst []string, i int) []string {
	return append(dst, itoa(t.MID[i]), t.MName[i], t.Category[i])
}

func (t *MerchantTable) IntColumn(name string) []int64 {
	if name == "m_id" {
		return t.MID
	}
	return nil
}

func (t *MerchantTable) Values(i int) []interface{} {
	return []interface{}{t.MID[i], t.MName[i], t.Category[i]}
}

// TransactionTable is the transaction fact table
type TransactionTable struct {
	TxnID   []int64
	CustID  []int64
	MID     []int64
	Amount  []Cents
	TxnDate []Date
}

// NewTransactionTable allocates every column for n rows
func NewTransactionTable(n int) *TransactionTable {
	return &TransactionTable{
		TxnID:   make([]int64, n),
		CustID:  make([]int64, n),
		MID:     make([]int64, n),
		Amount:  make([]Cents, n),
		TxnDate: make([]Date, n),
	}
}

var transactionInfo = TableInfo{
	Name:     TransactionsTable,
	Category: Fact,
	Columns: []Column{
		{Name: "txn_id", SQLType: "BIGINT NOT NULL"},
		{Name: "cust_id", SQLType: "BIGINT NOT NULL"},
		{Name: "m_id", SQLType: "BIGINT NOT NULL"},
		{Name: "amount", SQLType: "DECIMAL(12,2) NOT NULL"},
		{Name: "txn_date", SQLType: "DATE NOT NULL"},
	},
	PrimaryKey: "txn_id",
	ForeignKeys: []ForeignKey{
		{Table: TransactionsTable, Column: "cust_id", ReferencedTable: CustomersTable, ReferencedColumn: "cust_id", ConstraintName: "fk_txn_customer"},
		{Table: TransactionsTable, Column: "m_id", ReferencedTable: MerchantsTable, ReferencedColumn: "m_id", ConstraintName: "fk_txn_merchant"},
	},
}

func (t *TransactionTable) Info() TableInfo { return transactionInfo }
func (t *TransactionTable) Len() int        { return len(t.TxnID) }

func (t *TransactionTable) AppendText(dst []string, i int) []string {
	return append(dst,
		itoa(t.TxnID[i]),
		itoa(t.CustID[i]),
		itoa(t.MID[i]),
		t.Amount[i].String(),
		t.TxnDate[i].String(),
	)
}

func (t *TransactionTable) IntColumn(name string) []int64 {
	switch name {
	case "txn_id":
		return t.TxnID
	case "cust_id":
		return t.CustID
	case "m_id":
		return t.MID
	}
	return nil
}

func (t *TransactionTable) Values(i int) []interface{} {
	// cents/100 is the nearest float64 to the decimal amount, so drivers
	// formatting the shortest representation send it exactly
	return []interface{}{t.TxnID[i], t.CustID[i], t.MID[i], t.Amount[i].Float(), t.TxnDate[i].Time()}
}

// LoanTable is the loan fact table
type LoanTable struct {
	LoanID         []int64
	CustID         []int64
	LoanStatus     []LoanStatus
	OutstandingAmt []int64
}

// NewLoanTable allocates every column for n rows
func NewLoanTable(n int) *LoanTable {
	return &LoanTable{
		LoanID:         make([]int64, n),
		CustID:         make([]int64, n),
		LoanStatus:     make([]LoanStatus, n),
		OutstandingAmt: make([]int64, n),
	}
}

var loanInfo = TableInfo{
	Name:     LoansTable,
	Category: Fact,
	Columns: []Column{
		{Name: "loan_id", SQLType: "BIGINT NOT NULL"},
		{Name: "cust_id", SQLType: "BIGINT NOT NULL"},
		{Name: "loan_status", SQLType: "VARCHAR(16) NOT NULL"},
		{Name: "outstanding_amt", SQLType: "BIGINT NOT NULL"},
	},
	PrimaryKey: "loan_id",
	ForeignKeys: []ForeignKey{
		{Table: LoansTable, Column: "cust_id", ReferencedTable: CustomersTable, ReferencedColumn: "cust_id", ConstraintName: "fk_loan_customer"},
	},
}

func (t *LoanTable) Info() TableInfo { return loanInfo }
func (t *LoanTable) Len() int        { return len(t.LoanID) }

func (t *LoanTable) AppendText(dst []string, i int) []string {
	return append(dst,
		itoa(t.LoanID[i]),
		itoa(t.CustID[i]),
		t.LoanStatus[i].String(),
		itoa(t.OutstandingAmt[i]),
	)
}

func (t *LoanTable) IntColumn(name string) []int64 {
	switch name {
	case "loan_id":
		return t.LoanID
	case "cust_id":
		return t.CustID
	}
	return nil
}

func (t *LoanTable) Values(i int) []interface{} {
	return []interface{}{t.LoanID[i], t.CustID[i], t.LoanStatus[i].String(), t.OutstandingAmt[i]}
}

// Schemas returns the schema of every table the generator produces
func Schemas() []TableInfo {
	return []TableInfo{customerInfo, merchantInfo, transactionInfo, loanInfo}
}
