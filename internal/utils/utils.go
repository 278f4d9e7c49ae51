package utils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/internal/analyzer"
	"github.com/vitebski/bank-dataset-generator/internal/connector"
	"github.com/vitebski/bank-dataset-generator/internal/generator"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("BANKGEN_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file.
// It returns false when no file was loaded.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
		logger.Debugf("No %s file found, using existing environment variables", envFile)
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, env := range os.Environ() {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 || !hasAnyPrefix(parts[0], "BANKGEN_", "MYSQL_", "POSTGRES_") {
				continue
			}
			if strings.Contains(parts[0], "PASSWORD") || parts[0] == "POSTGRES_URL" {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ValidateConnectionParams validates MySQL connection parameters
func ValidateConnectionParams(host, user, password, database, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintSchemaAnalysis prints the table schemas, the generation plan and the
// number of rows each stage will produce
func PrintSchemaAnalysis(schemaAnalyzer *analyzer.SchemaAnalyzer, params generator.Params) {
	rows := ExpectedRows(params)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("DATASET SCHEMA ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Total tables: %d\n", len(schemaAnalyzer.Tables))
	fmt.Printf("   Tables with foreign keys: %d\n", len(schemaAnalyzer.ForeignKeys))
	fmt.Printf("   Seed: %d\n", params.Seed)
	fmt.Printf("   As-of date: %s\n", params.AsOf)

	fmt.Println("\n2. TABLES")
	for _, table := range schemaAnalyzer.Tables {
		info := schemaAnalyzer.TableInfo[table]
		fmt.Printf("   %s (%s): %s\n", table, info.Category, strings.Join(info.ColumnNames(), ", "))
		for _, fk := range schemaAnalyzer.ForeignKeys[table] {
			fmt.Printf("     %s -> %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		}
	}

	fmt.Println("\n3. GENERATION PLAN")
	for i, level := range schemaAnalyzer.GetStageLevels() {
		var parts []string
		for _, table := range level {
			parts = append(parts, fmt.Sprintf("%s (%s rows)", table, humanize.Comma(rows[table])))
		}
		fmt.Printf("   Level %d: %s\n", i, strings.Join(parts, ", "))
	}

	var total int64
	for _, n := range rows {
		total += n
	}
	fmt.Printf("\n   Total rows: %s\n", humanize.Comma(total))
	fmt.Println("\n" + strings.Repeat("=", 80))
}

// ExpectedRows returns the number of rows each table will have under params.
// Invalid counts are reported as zero.
func ExpectedRows(params generator.Params) map[string]int64 {
	loans := params.Loans.RowCount(params.Customers.Count)
	return map[string]int64{
		models.CustomersTable:    int64(max(params.Customers.Count, 0)),
		models.MerchantsTable:    int64(len(params.Merchants.Catalog)),
		models.TransactionsTable: int64(max(params.Transactions.Count, 0)),
		models.LoansTable:        int64(max(loans, 0)),
	}
}

// PrintSummary prints a summary of the run
func PrintSummary(tables []string, result models.PopulationResult, sink string, elapsed time.Duration) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATASET GENERATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Sink: %s\n", sink)
	fmt.Printf("Total tables: %d\n", len(tables))
	fmt.Printf("Successfully written tables: %d\n", len(result.SuccessfulTables))
	fmt.Printf("Failed tables: %d\n", len(result.FailedTables))
	fmt.Printf("Total records written: %s\n", humanize.Comma(result.TotalRecords))
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if len(result.FailedTables) > 0 {
		fmt.Println("\nFailed tables:")
		for _, table := range result.FailedTables {
			fmt.Printf("  - %s\n", table)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// TableCheck is the database verification of one table
type TableCheck struct {
	Table    string
	Expected int64
	Actual   int64
	// Orphans counts rows per foreign key column whose parent row is missing
	Orphans map[string]int64
	Err     error
}

// OK reports whether the table has the expected rows and no orphans
func (tc TableCheck) OK() bool {
	if tc.Err != nil || tc.Actual != tc.Expected {
		return false
	}
	for _, n := range tc.Orphans {
		if n > 0 {
			return false
		}
	}
	return true
}

// Querier runs single-value queries. Both database connectors implement it.
type Querier interface {
	QueryInt64(ctx context.Context, query string, params ...interface{}) (int64, error)
}

var (
	_ Querier = (*connector.DatabaseConnector)(nil)
	_ Querier = (*connector.PgConnector)(nil)
)

// VerifyTablePopulation counts the rows of every written table and the rows
// whose foreign keys have no parent row
func VerifyTablePopulation(ctx context.Context, db Querier, schemaAnalyzer *analyzer.SchemaAnalyzer, expected map[string]int64, logger *logrus.Logger) (bool, []TableCheck) {
	logger.Info("Verifying written tables...")

	var checks []TableCheck
	success := true
	for _, table := range schemaAnalyzer.GetTableInsertionOrder() {
		want, ok := expected[table]
		if !ok {
			continue
		}
		check := TableCheck{Table: table, Expected: want, Orphans: make(map[string]int64)}

		check.Actual, check.Err = db.QueryInt64(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if check.Err == nil {
			for _, fk := range schemaAnalyzer.ForeignKeys[table] {
				query := fmt.Sprintf("SELECT COUNT(*) FROM %s c LEFT JOIN %s p ON c.%s = p.%s WHERE p.%s IS NULL",
					table, fk.ReferencedTable, fk.Column, fk.ReferencedColumn, fk.ReferencedColumn)
				orphans, err := db.QueryInt64(ctx, query)
				if err != nil {
					check.Err = err
					break
				}
				check.Orphans[fk.Column] = orphans
			}
		}

		if !check.OK() {
			success = false
			if check.Err != nil {
				logger.Warningf("Could not verify table %s: %v", table, check.Err)
			} else {
				logger.Warningf("Table %s has %d/%d expected records", table, check.Actual, check.Expected)
			}
		}
		checks = append(checks, check)
	}

	if success {
		logger.Info("Verification successful: all tables have the expected records and no orphans")
	} else {
		logger.Error("Verification failed")
	}
	return success, checks
}

// PrintVerificationResults prints the in-memory verification and, for
// database sinks, the per-table database checks
func PrintVerificationResults(result models.VerificationResult, checks []TableCheck) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATASET VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if result.Success {
		fmt.Println("✅ Primary keys are dense and every foreign key is in range")
	} else {
		tables := make([]string, 0, len(result.Violations))
		for table := range result.Violations {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Printf("❌ %s:\n", table)
			for _, msg := range result.Violations[table] {
				fmt.Printf("  - %s\n", msg)
			}
		}
	}

	for _, check := range checks {
		switch {
		case check.Err != nil:
			fmt.Printf("❌ %s: %v\n", check.Table, check.Err)
		case check.OK():
			fmt.Printf("✅ %s: %s records\n", check.Table, humanize.Comma(check.Actual))
		default:
			fmt.Printf("⚠️  %s: %s/%s records\n", check.Table, humanize.Comma(check.Actual), humanize.Comma(check.Expected))
			for column, n := range check.Orphans {
				if n > 0 {
					fmt.Printf("  - %d rows with %s missing its parent\n", n, column)
				}
			}
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}
