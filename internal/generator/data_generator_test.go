package generator

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

var testAsOf, _ = models.ParseDate("2024-06-30")

type fixedNames struct{}

func (fixedNames) Name() string { return "Jane Doe" }

// newTestGenerator returns a generator with small chunks so tests span
// several chunks and workers
func newTestGenerator(seed int64) *DataGenerator {
	dg := NewDataGenerator(seed, testAsOf, testLogger())
	dg.ChunkSize = 64
	dg.Workers = 4
	dg.Names = func(int64) NameProvider { return fixedNames{} }
	return dg
}

func TestGenerateCustomers(t *testing.T) {
	dg := newTestGenerator(42)
	p := DefaultParams().Customers
	p.Count = 1000

	ct, err := dg.GenerateCustomers(context.Background(), p)
	if err != nil {
		t.Fatalf("GenerateCustomers failed: %v", err)
	}
	if ct.Len() != p.Count {
		t.Fatalf("Expected %d customers, got %d", p.Count, ct.Len())
	}

	// cust_id is a bijection onto 1..Count
	seen := make([]bool, p.Count+1)
	for _, id := range ct.CustID {
		if id < 1 || id > int64(p.Count) || seen[id] {
			t.Fatalf("cust_id %d is out of range or duplicated", id)
		}
		seen[id] = true
	}

	joinStart := testAsOf.AddDays(-p.JoinWindowDays)
	for i := 0; i < ct.Len(); i++ {
		if ct.AnnualIncome[i] < p.IncomeMin || ct.AnnualIncome[i] > p.IncomeMax {
			t.Errorf("Row %d: annual_income %d outside [%d, %d]", i, ct.AnnualIncome[i], p.IncomeMin, p.IncomeMax)
		}
		if ct.JobTenureYears[i] < p.TenureMin || ct.JobTenureYears[i] > p.TenureMax {
			t.Errorf("Row %d: job_tenure_years %d outside [%d, %d]", i, ct.JobTenureYears[i], p.TenureMin, p.TenureMax)
		}
		if int(ct.Country[i]) >= len(p.Countries) {
			t.Errorf("Row %d: country index %d outside the country set", i, ct.Country[i])
		}
		if ct.JoinDate[i] < joinStart || ct.JoinDate[i] > testAsOf {
			t.Errorf("Row %d: join_date %s outside [%s, %s]", i, ct.JoinDate[i], joinStart, testAsOf)
		}
		if ct.Name[i] == "" {
			t.Errorf("Row %d: empty name", i)
		}
	}
}

func TestGenerateCustomersEmployeeProbability(t *testing.T) {
	dg := newTestGenerator(7)
	p := DefaultParams().Customers
	p.Count = 200

	p.EmployeeProbability = 1
	ct, err := dg.GenerateCustomers(context.Background(), p)
	if err != nil {
		t.Fatalf("GenerateCustomers failed: %v", err)
	}
	for i, employee := range ct.IsBankEmployee {
		if !employee {
			t.Fatalf("Row %d: expected every customer to be an employee with probability 1", i)
		}
	}

	p.EmployeeProbability = 0
	p.Countries = []string{"GB"}
	ct, err = dg.GenerateCustomers(context.Background(), p)
	if err != nil {
		t.Fatalf("GenerateCustomers failed: %v", err)
	}
	for i := 0; i < ct.Len(); i++ {
		if ct.IsBankEmployee[i] {
			t.Fatalf("Row %d: expected no employees with probability 0", i)
		}
		if got := ct.AppendText(nil, i)[2]; got != "GB" {
			t.Fatalf("Row %d: expected country GB, got %s", i, got)
		}
	}
}

func TestGenerateMerchants(t *testing.T) {
	dg := newTestGenerator(1)

	mt, err := dg.GenerateMerchants(DefaultParams().Merchants)
	if err != nil {
		t.Fatalf("GenerateMerchants failed: %v", err)
	}
	if mt.Len() != 6 {
		t.Fatalf("Expected 6 merchants, got %d", mt.Len())
	}
	for i := 0; i < mt.Len(); i++ {
		if mt.MID[i] != int64(i+1) {
			t.Errorf("Expected m_id %d, got %d", i+1, mt.MID[i])
		}
	}
	if mt.MName[0] != "Grand Casino" || mt.Category[0] != models.CategoryGambling {
		t.Errorf("Unexpected first merchant: %s/%s", mt.MName[0], mt.Category[0])
	}

	_, err = dg.GenerateMerchants(MerchantParams{Catalog: []MerchantSpec{{Name: "Corner Shop", Category: "Groceries"}}})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for an unknown category, got %v", err)
	}
	_, err = dg.GenerateMerchants(MerchantParams{})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for an empty catalog, got %v", err)
	}
}

var amountPattern = regexp.MustCompile(`^\d+\.\d{2}$`)

func TestGenerateTransactions(t *testing.T) {
	dg := newTestGenerator(99)
	p := DefaultParams().Transactions
	p.Count = 1000
	d := Domain{Customers: 5, Merchants: 6}

	tt, err := dg.GenerateTransactions(context.Background(), p, d)
	if err != nil {
		t.Fatalf("GenerateTransactions failed: %v", err)
	}
	if tt.Len() != 1000 {
		t.Fatalf("Expected 1000 transactions, got %d", tt.Len())
	}

	windowStart := testAsOf.AddDays(-p.WindowDays)
	for i := 0; i < tt.Len(); i++ {
		if tt.TxnID[i] != int64(i+1) {
			t.Fatalf("Row %d: expected txn_id %d, got %d", i, i+1, tt.TxnID[i])
		}
		if tt.CustID[i] < 1 || tt.CustID[i] > 5 {
			t.Errorf("Row %d: cust_id %d outside [1, 5]", i, tt.CustID[i])
		}
		if tt.MID[i] < 1 || tt.MID[i] > 6 {
			t.Errorf("Row %d: m_id %d outside [1, 6]", i, tt.MID[i])
		}
		amount := tt.Amount[i]
		if amount < 1000 || amount > 500000 {
			t.Errorf("Row %d: amount %s outside [10, 5000]", i, amount)
		}
		if !amountPattern.MatchString(amount.String()) {
			t.Errorf("Row %d: amount %q does not have two decimal places", i, amount)
		}
		if tt.TxnDate[i] < windowStart || tt.TxnDate[i] > testAsOf {
			t.Errorf("Row %d: txn_date %s outside the window", i, tt.TxnDate[i])
		}
	}
}

func TestGenerateLoans(t *testing.T) {
	dg := newTestGenerator(5)
	p := DefaultParams().Loans

	lt, err := dg.GenerateLoans(context.Background(), p, 100)
	if err != nil {
		t.Fatalf("GenerateLoans failed: %v", err)
	}
	if lt.Len() != 40 {
		t.Fatalf("Expected 40 loans for 100 customers at rate 0.4, got %d", lt.Len())
	}
	for i := 0; i < lt.Len(); i++ {
		if lt.LoanID[i] != int64(i+1) {
			t.Errorf("Row %d: expected loan_id %d, got %d", i, i+1, lt.LoanID[i])
		}
		if lt.CustID[i] < 1 || lt.CustID[i] > 100 {
			t.Errorf("Row %d: cust_id %d outside [1, 100]", i, lt.CustID[i])
		}
		if lt.OutstandingAmt[i] < p.OutstandingMin || lt.OutstandingAmt[i] > p.OutstandingMax {
			t.Errorf("Row %d: outstanding_amt %d outside bounds", i, lt.OutstandingAmt[i])
		}
	}

	// An explicit count overrides the rate, and weights select statuses
	p.Count = 7
	p.StatusWeights = []float64{0, 0, 1}
	lt, err = dg.GenerateLoans(context.Background(), p, 100)
	if err != nil {
		t.Fatalf("GenerateLoans failed: %v", err)
	}
	if lt.Len() != 7 {
		t.Fatalf("Expected 7 loans, got %d", lt.Len())
	}
	for i, status := range lt.LoanStatus {
		if status != models.LoanDefaulted {
			t.Errorf("Row %d: expected Defaulted, got %s", i, status)
		}
	}
}

func TestLoanParamsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*LoanParams)
		customers int
		valid     bool
	}{
		{"defaults", func(*LoanParams) {}, 100, true},
		{"full penetration", func(p *LoanParams) { p.PenetrationRate = 1 }, 100, true},
		{"zero rate", func(p *LoanParams) { p.PenetrationRate = 0 }, 100, false},
		{"rate above one", func(p *LoanParams) { p.PenetrationRate = 1.5 }, 100, false},
		{"rate rounds to zero loans", func(p *LoanParams) { p.PenetrationRate = 0.001 }, 10, false},
		{"negative count", func(p *LoanParams) { p.Count = -1 }, 100, false},
		{"no customers", func(*LoanParams) {}, 0, false},
		{"inverted outstanding bounds", func(p *LoanParams) { p.OutstandingMin = 60000 }, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams().Loans
			tt.mutate(&p)
			err := p.Validate(tt.customers)
			if (err == nil) != tt.valid {
				t.Errorf("Expected valid=%v, got %v", tt.valid, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestInvalidCountsProduceNoRows(t *testing.T) {
	dg := newTestGenerator(1)

	cp := DefaultParams().Customers
	cp.Count = 0
	ct, err := dg.GenerateCustomers(context.Background(), cp)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for num_customers = 0, got %v", err)
	}
	if ct != nil {
		t.Errorf("Expected no customer table, got %d rows", ct.Len())
	}

	tp := DefaultParams().Transactions
	tp.Count = -1
	tt, err := dg.GenerateTransactions(context.Background(), tp, Domain{Customers: 5, Merchants: 6})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for num_transactions = -1, got %v", err)
	}
	if tt != nil {
		t.Errorf("Expected no transaction table, got %d rows", tt.Len())
	}

	// Transactions cannot reference an empty customer domain
	tp.Count = 10
	if _, err := dg.GenerateTransactions(context.Background(), tp, Domain{Customers: 0, Merchants: 6}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for an empty customer domain, got %v", err)
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	p := DefaultParams()
	p.Customers.Count = 300
	p.Transactions.Count = 2000
	d := Domain{Customers: p.Customers.Count, Merchants: len(p.Merchants.Catalog)}

	generate := func(seed int64, workers int) (*models.CustomerTable, *models.TransactionTable) {
		dg := NewDataGenerator(seed, testAsOf, testLogger())
		dg.ChunkSize = 50
		dg.Workers = workers
		ct, err := dg.GenerateCustomers(context.Background(), p.Customers)
		if err != nil {
			t.Fatalf("GenerateCustomers failed: %v", err)
		}
		tt, err := dg.GenerateTransactions(context.Background(), p.Transactions, d)
		if err != nil {
			t.Fatalf("GenerateTransactions failed: %v", err)
		}
		return ct, tt
	}

	c1, t1 := generate(2024, 1)
	c2, t2 := generate(2024, 8)
	if !reflect.DeepEqual(c1, c2) {
		t.Error("Expected identical customers for the same seed regardless of workers")
	}
	if !reflect.DeepEqual(t1, t2) {
		t.Error("Expected identical transactions for the same seed regardless of workers")
	}

	_, t3 := generate(2025, 1)
	if reflect.DeepEqual(t1.Amount, t3.Amount) {
		t.Error("Expected different amounts for a different seed")
	}
}

func TestSchemaIsIndependentOfValues(t *testing.T) {
	p := DefaultParams()
	p.Customers.Count = 10
	p.Transactions.Count = 10
	d := Domain{Customers: 10, Merchants: 6}

	var infos [][]models.TableInfo
	for _, seed := range []int64{1, 2} {
		dg := newTestGenerator(seed)
		ct, err := dg.GenerateCustomers(context.Background(), p.Customers)
		if err != nil {
			t.Fatalf("GenerateCustomers failed: %v", err)
		}
		mt, err := dg.GenerateMerchants(p.Merchants)
		if err != nil {
			t.Fatalf("GenerateMerchants failed: %v", err)
		}
		tt, err := dg.GenerateTransactions(context.Background(), p.Transactions, d)
		if err != nil {
			t.Fatalf("GenerateTransactions failed: %v", err)
		}
		lt, err := dg.GenerateLoans(context.Background(), p.Loans, 10)
		if err != nil {
			t.Fatalf("GenerateLoans failed: %v", err)
		}
		infos = append(infos, []models.TableInfo{ct.Info(), mt.Info(), tt.Info(), lt.Info()})
	}

	if !reflect.DeepEqual(infos[0], infos[1]) {
		t.Error("Expected identical schemas across runs")
	}
	if !reflect.DeepEqual(infos[0], models.Schemas()) {
		t.Error("Expected generated tables to carry the declared schemas")
	}
}

func TestGenerationCancelled(t *testing.T) {
	dg := newTestGenerator(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultParams().Transactions
	p.Count = 10000
	tt, err := dg.GenerateTransactions(ctx, p, Domain{Customers: 5, Merchants: 6})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if tt != nil {
		t.Error("Expected no table from a cancelled stage")
	}
}

func TestFakerNamesAreSeeded(t *testing.T) {
	a, b := FakerNames(11), FakerNames(11)
	for i := 0; i < 20; i++ {
		na, nb := a.Name(), b.Name()
		if na == "" {
			t.Fatal("Expected a non-empty name")
		}
		if na != nb {
			t.Fatalf("Expected identical names from identical seeds, got %q and %q", na, nb)
		}
	}
}
