package connector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// PgConnector streams tables into PostgreSQL with COPY
type PgConnector struct {
	ConnString string
	Conn       *pgx.Conn
	Logger     *logrus.Logger
}

// NewPgConnector creates a connector. An empty connString falls back to POSTGRES_URL.
func NewPgConnector(connString string, logger *logrus.Logger) *PgConnector {
	if connString == "" {
		connString = getEnvOrDefault("POSTGRES_URL", "postgres://postgres@localhost:5432/postgres")
	}
	return &PgConnector{ConnString: connString, Logger: logger}
}

// Connect opens the connection
func (pc *PgConnector) Connect(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, pc.ConnString)
	if err != nil {
		pc.Logger.Errorf("Error connecting to PostgreSQL: %v", err)
		return err
	}
	pc.Conn = conn
	pc.Logger.Infof("Connected to PostgreSQL database: %s", conn.Config().Database)
	return nil
}

// Disconnect closes the connection
func (pc *PgConnector) Disconnect(ctx context.Context) {
	if pc.Conn == nil {
		return
	}
	if err := pc.Conn.Close(ctx); err != nil {
		pc.Logger.Errorf("Error closing PostgreSQL connection: %v", err)
		return
	}
	pc.Logger.Info("PostgreSQL connection closed")
}

// CreateTable creates the table if it does not exist yet
func (pc *PgConnector) CreateTable(ctx context.Context, info models.TableInfo) error {
	if _, err := pc.Conn.Exec(ctx, CreateTableSQL(info)); err != nil {
		return fmt.Errorf("create table %s: %w", info.Name, err)
	}
	return nil
}

// QueryInt64 runs a query returning a single integer, such as a COUNT(*)
func (pc *PgConnector) QueryInt64(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var value int64
	if err := pc.Conn.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		pc.Logger.Errorf("Error executing query: %v", err)
		return 0, err
	}
	return value, nil
}

// CopyTable streams every row of the table with COPY FROM STDIN
func (pc *PgConnector) CopyTable(ctx context.Context, table models.Table) (int64, error) {
	info := table.Info()
	n, err := pc.Conn.CopyFrom(ctx, pgx.Identifier{info.Name}, info.ColumnNames(), NewTableSource(table))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", info.Name, err)
	}
	return n, nil
}

// TableSource adapts a generated table to pgx.CopyFromSource
type TableSource struct {
	table models.Table
	row   int
}

// NewTableSource returns a source positioned before the first row
func NewTableSource(table models.Table) *TableSource {
	return &TableSource{table: table, row: -1}
}

func (ts *TableSource) Next() bool {
	ts.row++
	return ts.row < ts.table.Len()
}

func (ts *TableSource) Values() ([]interface{}, error) {
	return ts.table.Values(ts.row), nil
}

func (ts *TableSource) Err() error {
	return nil
}
