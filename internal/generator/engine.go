package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/internal/analyzer"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Engine runs the four generation stages in dependency order
type Engine struct {
	Params         Params
	DataGenerator  *DataGenerator
	SchemaAnalyzer *analyzer.SchemaAnalyzer
	Logger         *logrus.Logger
}

// NewEngine creates an engine for params. The analyzer must already have
// analyzed models.Schemas().
func NewEngine(params Params, schemaAnalyzer *analyzer.SchemaAnalyzer, logger *logrus.Logger) *Engine {
	dg := NewDataGenerator(params.Seed, params.AsOf, logger)
	dg.Workers = params.Workers
	if params.ChunkSize > 0 {
		dg.ChunkSize = params.ChunkSize
	}
	return &Engine{
		Params:         params,
		DataGenerator:  dg,
		SchemaAnalyzer: schemaAnalyzer,
		Logger:         logger,
	}
}

// Validate checks the parameters of one stage
func (e *Engine) Validate(table string) error {
	d := e.Params.Domain()
	switch table {
	case models.CustomersTable:
		return e.Params.Customers.Validate()
	case models.MerchantsTable:
		return e.Params.Merchants.Validate()
	case models.TransactionsTable:
		return e.Params.Transactions.Validate(d)
	case models.LoansTable:
		return e.Params.Loans.Validate(d.Customers)
	}
	return fmt.Errorf("no generator for table %s", table)
}

// Generate validates every stage, then generates the valid ones level by
// level. Stages that fail validation produce no table, and neither do the
// stages that reference them; their errors are returned together with the
// tables of the unaffected stages. Cancellation is
// checked between levels and between chunks.
func (e *Engine) Generate(ctx context.Context) (*models.Dataset, error) {
	levels := e.SchemaAnalyzer.GetStageLevels()
	if len(levels) == 0 {
		return nil, fmt.Errorf("schema has not been analyzed")
	}

	var invalid *multierror.Error
	valid := make(map[string]bool)
	// skipped maps a table to the invalid table it depends on
	skipped := make(map[string]string)
	for _, level := range levels {
		for _, table := range level {
			if cause, ok := skipped[table]; ok {
				e.Logger.Errorf("Skipping %s: depends on %s", table, cause)
				invalid = multierror.Append(invalid, fmt.Errorf("%s: skipped: depends on %s", table, cause))
				continue
			}
			if err := e.Validate(table); err != nil {
				e.Logger.Errorf("Skipping %s: %v", table, err)
				invalid = multierror.Append(invalid, err)
				e.skipDependents(table, skipped)
				continue
			}
			valid[table] = true
		}
	}

	e.Logger.Infof("Generating dataset with seed %d as of %s", e.Params.Seed, e.Params.AsOf)
	start := time.Now()
	ds := &models.Dataset{}

	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			e.Logger.Warningf("Generation cancelled before stage level %d", i)
			return ds, err
		}

		// each stage assigns a different field of ds
		g, gctx := errgroup.WithContext(ctx)
		for _, table := range level {
			if !valid[table] {
				continue
			}
			g.Go(func() error {
				return e.runStage(gctx, table, ds)
			})
		}
		if err := g.Wait(); err != nil {
			return ds, err
		}
	}

	e.Logger.Infof("Dataset generated in %s", time.Since(start).Round(time.Millisecond))
	return ds, invalid.ErrorOrNil()
}

// skipDependents marks every table that transitively references table
func (e *Engine) skipDependents(table string, skipped map[string]string) {
	queue := []string{table}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range e.SchemaAnalyzer.GetDependents(current) {
			if _, ok := skipped[dep]; ok {
				continue
			}
			skipped[dep] = table
			queue = append(queue, dep)
		}
	}
}

func (e *Engine) runStage(ctx context.Context, table string, ds *models.Dataset) error {
	var err error
	switch table {
	case models.CustomersTable:
		ds.Customers, err = e.DataGenerator.GenerateCustomers(ctx, e.Params.Customers)
	case models.MerchantsTable:
		ds.Merchants, err = e.DataGenerator.GenerateMerchants(e.Params.Merchants)
	case models.TransactionsTable:
		ds.Transactions, err = e.DataGenerator.GenerateTransactions(ctx, e.Params.Transactions, e.Params.Domain())
	case models.LoansTable:
		ds.Loans, err = e.DataGenerator.GenerateLoans(ctx, e.Params.Loans, e.Params.Customers.Count)
	default:
		err = fmt.Errorf("no generator for table %s", table)
	}
	if err != nil {
		return fmt.Errorf("generating %s: %w", table, err)
	}
	return nil
}
