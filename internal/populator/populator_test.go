package populator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/internal/analyzer"
	"github.com/vitebski/bank-dataset-generator/internal/connector"
	"github.com/vitebski/bank-dataset-generator/internal/generator"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func testMerchants() *models.MerchantTable {
	return &models.MerchantTable{
		MID:      []int64{1, 2, 3, 4, 5, 6},
		MName:    []string{"Grand Casino", "BetWay Online", "Whole Foods", "Walmart", "Apple Store", "Steam Games"},
		Category: []string{"Gambling", "Gambling", "Essentials", "Essentials", "Electronics", "Entertainment"},
	}
}

func testDataset() *models.Dataset {
	date, _ := models.ParseDate("2024-02-29")

	customers := models.NewCustomerTable(2, []string{"US", "UAE"})
	copy(customers.CustID, []int64{1, 2})
	copy(customers.Name, []string{"Ada Lovelace", "Smith, John"})
	copy(customers.Country, []uint8{0, 1})
	copy(customers.AnnualIncome, []int64{25000, 150000})
	copy(customers.JobTenureYears, []int64{0, 20})
	copy(customers.IsBankEmployee, []bool{false, true})
	copy(customers.JoinDate, []models.Date{date, date})

	txns := models.NewTransactionTable(2)
	copy(txns.TxnID, []int64{1, 2})
	copy(txns.CustID, []int64{2, 1})
	copy(txns.MID, []int64{6, 3})
	copy(txns.Amount, []models.Cents{1000, 499999})
	copy(txns.TxnDate, []models.Date{date, date.AddDays(1)})

	loans := models.NewLoanTable(1)
	loans.LoanID[0] = 1
	loans.CustID[0] = 2
	loans.LoanStatus[0] = models.LoanClosed
	loans.OutstandingAmt[0] = 1000

	return &models.Dataset{Customers: customers, Merchants: testMerchants(), Transactions: txns, Loans: loans}
}

func analyzed(t *testing.T) *analyzer.SchemaAnalyzer {
	t.Helper()
	sa := analyzer.NewSchemaAnalyzer(testLogger())
	if err := sa.AnalyzeSchema(models.Schemas()); err != nil {
		t.Fatalf("Failed to analyze schema: %v", err)
	}
	return sa
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return records
}

func TestCSVSinkWritesDataset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewCSVSink(dir, false, testLogger())
	sink.Manifest = NewManifest(42, 19782)
	ctx := context.Background()

	if err := sink.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	dp := NewDatasetPopulator(sink, analyzed(t), testLogger())
	result := dp.PopulateDataset(ctx, testDataset())
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(result.FailedTables) != 0 {
		t.Errorf("Expected no failed tables, got %v", result.FailedTables)
	}
	if result.TotalRecords != 11 {
		t.Errorf("Expected 11 records, got %d", result.TotalRecords)
	}

	expected := map[string][][]string{
		"dim_customers.csv": {
			{"cust_id", "name", "country", "annual_income", "job_tenure_years", "is_bank_employee", "join_date"},
			{"1", "Ada Lovelace", "US", "25000", "0", "0", "2024-02-29"},
			{"2", "Smith, John", "UAE", "150000", "20", "1", "2024-02-29"},
		},
		"fact_transactions.csv": {
			{"txn_id", "cust_id", "m_id", "amount", "txn_date"},
			{"1", "2", "6", "10.00", "2024-02-29"},
			{"2", "1", "3", "4999.99", "2024-03-01"},
		},
		"fact_loans.csv": {
			{"loan_id", "cust_id", "loan_status", "outstanding_amt"},
			{"1", "2", "Closed", "1000"},
		},
	}
	for file, want := range expected {
		if got := readCSV(t, filepath.Join(dir, file)); !reflect.DeepEqual(got, want) {
			t.Errorf("Unexpected content of %s:\n got %v\nwant %v", file, got, want)
		}
	}
	if got := readCSV(t, filepath.Join(dir, "dim_merchants.csv")); len(got) != 7 {
		t.Errorf("Expected a header and 6 merchants, got %d records", len(got))
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("Failed to decode manifest: %v", err)
	}
	if manifest.Seed != 42 || manifest.AsOf != "2024-02-29" || manifest.RunID == "" {
		t.Errorf("Unexpected manifest header: %+v", &manifest)
	}
	if len(manifest.Tables) != 4 {
		t.Errorf("Expected 4 tables in the manifest, got %d", len(manifest.Tables))
	}
}

func TestCSVSinkSkipsTablesOfInvalidStage(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// files of an earlier run with a different seed
	for _, name := range []string{models.CustomersTable, models.TransactionsTable, models.LoansTable} {
		if err := os.WriteFile(filepath.Join(dir, FileName(name)), []byte("stale\n"), 0644); err != nil {
			t.Fatalf("Failed to write stale file: %v", err)
		}
	}

	p := generator.DefaultParams()
	p.Customers.Count = 20
	p.Customers.IncomeMin = 200000
	p.Transactions.Count = 50
	p.Seed = 7
	sa := analyzed(t)
	ds, err := generator.NewEngine(p, sa, testLogger()).Generate(ctx)
	if !errors.Is(err, generator.ErrInvalidParameter) {
		t.Fatalf("Expected ErrInvalidParameter, got %v", err)
	}

	sink := NewCSVSink(dir, false, testLogger())
	if err := sink.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	result := NewDatasetPopulator(sink, sa, testLogger()).PopulateDataset(ctx, ds)
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !reflect.DeepEqual(result.SuccessfulTables, []string{models.MerchantsTable}) {
		t.Errorf("Expected only %s to be written, got %v", models.MerchantsTable, result.SuccessfulTables)
	}
	for _, name := range []string{models.CustomersTable, models.TransactionsTable, models.LoansTable} {
		if _, err := os.Stat(filepath.Join(dir, FileName(name))); !os.IsNotExist(err) {
			t.Errorf("Expected no %s file, stat returned %v", FileName(name), err)
		}
	}
	if got := readCSV(t, filepath.Join(dir, FileName(models.MerchantsTable))); len(got) != 7 {
		t.Errorf("Expected a header and 6 merchants, got %d records", len(got))
	}
}

func TestCSVSinkLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, false, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sink.Write(ctx, testMerchants()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty output directory, found %d entries", len(entries))
	}
}

// recordingSink remembers the order tables were written in
type recordingSink struct {
	written []string
	fail    map[string]bool
}

func (s *recordingSink) Open(ctx context.Context) error  { return nil }
func (s *recordingSink) Close(ctx context.Context) error { return nil }

func (s *recordingSink) Write(ctx context.Context, table models.Table) (int64, error) {
	name := table.Info().Name
	if s.fail[name] {
		return 0, errors.New("disk full")
	}
	s.written = append(s.written, name)
	return int64(table.Len()), nil
}

func TestPopulateDatasetOrderAndFailures(t *testing.T) {
	sink := &recordingSink{fail: map[string]bool{models.LoansTable: true}}
	dp := NewDatasetPopulator(sink, analyzed(t), testLogger())

	ds := testDataset()
	ds.Transactions = nil
	result := dp.PopulateDataset(context.Background(), ds)

	if want := []string{models.CustomersTable, models.MerchantsTable}; !reflect.DeepEqual(sink.written, want) {
		t.Errorf("Expected writes %v, got %v", want, sink.written)
	}
	if want := []string{models.TransactionsTable, models.LoansTable}; !reflect.DeepEqual(result.FailedTables, want) {
		t.Errorf("Expected failed tables %v, got %v", want, result.FailedTables)
	}
	if !dp.FailedTables[models.LoansTable] || !dp.FailedTables[models.TransactionsTable] {
		t.Error("Expected failed tables to be recorded on the populator")
	}
	if result.TotalRecords != 8 {
		t.Errorf("Expected 8 records, got %d", result.TotalRecords)
	}
}

func TestMySQLSinkBatches(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &connector.DatabaseConnector{DB: sqlDB, Logger: testLogger()}
	sink := NewMySQLSink(db, 4, testLogger())
	table := testMerchants()
	info := table.Info()

	mock.ExpectExec(connector.CreateTableSQL(info)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(connector.InsertSQL(info, 4))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()
	mock.ExpectExec(connector.InsertSQL(info, 2)).
		WithArgs(int64(5), "Apple Store", "Electronics", int64(6), "Steam Games", "Entertainment").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	written, err := sink.Write(context.Background(), table)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if written != 6 {
		t.Errorf("Expected 6 rows written, got %d", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMySQLSinkCreateTableError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &connector.DatabaseConnector{DB: sqlDB, Logger: testLogger()}
	sink := NewMySQLSink(db, 0, testLogger())
	if sink.BatchSize != defaultBatchSize {
		t.Errorf("Expected default batch size %d, got %d", defaultBatchSize, sink.BatchSize)
	}

	table := testMerchants()
	mock.ExpectExec(connector.CreateTableSQL(table.Info())).WillReturnError(errors.New("access denied"))

	if _, err := sink.Write(context.Background(), table); err == nil {
		t.Error("Expected Write to fail when the table cannot be created")
	}
}

func TestManifestErrors(t *testing.T) {
	m := NewManifest(1, 0)
	m.AddError(errors.New("customers: num_customers must be > 0, got 0"))

	dir := t.TempDir()
	if err := m.Write(dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}
	var decoded Manifest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode manifest: %v", err)
	}
	if len(decoded.Errors) != 1 || decoded.AsOf != "1970-01-01" {
		t.Errorf("Unexpected manifest: %+v", &decoded)
	}
}

func TestMySQLSinkCapsBatchSize(t *testing.T) {
	sink := NewMySQLSink(&connector.DatabaseConnector{Logger: testLogger()}, 50000, testLogger())

	for _, info := range models.Schemas() {
		rows := sink.rowsPerBatch(info)
		if rows*len(info.Columns) > maxPlaceholders {
			t.Errorf("%s: %d rows of %d columns exceed %d placeholders", info.Name, rows, len(info.Columns), maxPlaceholders)
		}
		if info.Name == models.CustomersTable && rows != 9362 {
			t.Errorf("Expected 9362 customer rows per batch, got %d", rows)
		}
	}

	sink.BatchSize = 100
	for _, info := range models.Schemas() {
		if rows := sink.rowsPerBatch(info); rows != 100 {
			t.Errorf("%s: expected the configured batch size 100, got %d", info.Name, rows)
		}
	}
}
