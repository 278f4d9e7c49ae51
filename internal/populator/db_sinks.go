package populator

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/internal/connector"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

const (
	defaultBatchSize = 1000
	batchesPerTx     = 10
	// MySQL rejects prepared statements with more placeholders
	maxPlaceholders = 65535
)

// MySQLSink inserts tables through multi-row INSERT batches
type MySQLSink struct {
	DB        *connector.DatabaseConnector
	BatchSize int
	Logger    *logrus.Logger
}

// NewMySQLSink creates a new MySQL sink
func NewMySQLSink(db *connector.DatabaseConnector, batchSize int, logger *logrus.Logger) *MySQLSink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &MySQLSink{DB: db, BatchSize: batchSize, Logger: logger}
}

func (s *MySQLSink) Open(ctx context.Context) error {
	if s.DB.DB != nil {
		return nil
	}
	return s.DB.Connect()
}

// Write creates the table and inserts it in batches of BatchSize rows,
// batchesPerTx batches per transaction
func (s *MySQLSink) Write(ctx context.Context, table models.Table) (int64, error) {
	info := table.Info()
	if err := s.DB.CreateTable(info); err != nil {
		return 0, err
	}

	batchSize := s.rowsPerBatch(info)
	n := table.Len()
	full := n / batchSize
	insertSQL := connector.InsertSQL(info, batchSize)

	var written int64
	var paramsList [][]interface{}
	for b := 0; b < full; b++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		paramsList = append(paramsList, batchParams(table, b*batchSize, (b+1)*batchSize))

		if len(paramsList) == batchesPerTx || b == full-1 {
			affected, err := s.DB.ExecuteMany(insertSQL, paramsList)
			if err != nil {
				return written, err
			}
			written += affected
			paramsList = nil
		}
	}

	if lo := full * batchSize; lo < n {
		affected, err := s.DB.ExecuteStatement(connector.InsertSQL(info, n-lo), batchParams(table, lo, n)...)
		if err != nil {
			return written, err
		}
		written += affected
	}

	return written, nil
}

// rowsPerBatch caps BatchSize so one INSERT stays within maxPlaceholders
func (s *MySQLSink) rowsPerBatch(info models.TableInfo) int {
	limit := maxPlaceholders / max(len(info.Columns), 1)
	if s.BatchSize > limit {
		s.Logger.Debugf("Capping batch size for %s at %d rows", info.Name, limit)
		return limit
	}
	return s.BatchSize
}

func (s *MySQLSink) Close(ctx context.Context) error {
	s.DB.Disconnect()
	return nil
}

// batchParams flattens rows [lo, hi) into one parameter list
func batchParams(table models.Table, lo, hi int) []interface{} {
	params := make([]interface{}, 0, (hi-lo)*len(table.Info().Columns))
	for i := lo; i < hi; i++ {
		params = append(params, table.Values(i)...)
	}
	return params
}

// PostgresSink streams tables with COPY
type PostgresSink struct {
	DB     *connector.PgConnector
	Logger *logrus.Logger
}

// NewPostgresSink creates a new PostgreSQL sink
func NewPostgresSink(db *connector.PgConnector, logger *logrus.Logger) *PostgresSink {
	return &PostgresSink{DB: db, Logger: logger}
}

func (s *PostgresSink) Open(ctx context.Context) error {
	return s.DB.Connect(ctx)
}

func (s *PostgresSink) Write(ctx context.Context, table models.Table) (int64, error) {
	if err := s.DB.CreateTable(ctx, table.Info()); err != nil {
		return 0, err
	}
	return s.DB.CopyTable(ctx, table)
}

func (s *PostgresSink) Close(ctx context.Context) error {
	s.DB.Disconnect(ctx)
	return nil
}
