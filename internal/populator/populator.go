package populator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/internal/analyzer"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// Sink is a destination for generated tables. Each table is written once.
type Sink interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, table models.Table) (int64, error)
	Close(ctx context.Context) error
}

// DatasetPopulator writes a generated dataset to a sink in dependency order
type DatasetPopulator struct {
	Sink           Sink
	SchemaAnalyzer *analyzer.SchemaAnalyzer
	FailedTables   map[string]bool
	WrittenRows    map[string]int64
	Logger         *logrus.Logger
}

// NewDatasetPopulator creates a new dataset populator
func NewDatasetPopulator(sink Sink, schemaAnalyzer *analyzer.SchemaAnalyzer, logger *logrus.Logger) *DatasetPopulator {
	return &DatasetPopulator{
		Sink:           sink,
		SchemaAnalyzer: schemaAnalyzer,
		FailedTables:   make(map[string]bool),
		WrittenRows:    make(map[string]int64),
		Logger:         logger,
	}
}

// PopulateDataset writes every generated table. Tables missing from the
// dataset and tables the sink rejects are reported as failed; the remaining
// tables are still written.
func (dp *DatasetPopulator) PopulateDataset(ctx context.Context, ds *models.Dataset) models.PopulationResult {
	var result models.PopulationResult
	tables := ds.Tables()

	for _, name := range dp.SchemaAnalyzer.GetTableInsertionOrder() {
		table, ok := tables[name]
		if !ok {
			dp.Logger.Warningf("Table %s was not generated, skipping", name)
			dp.FailedTables[name] = true
			result.FailedTables = append(result.FailedTables, name)
			continue
		}
		if ctx.Err() != nil {
			dp.FailedTables[name] = true
			result.FailedTables = append(result.FailedTables, name)
			continue
		}

		if dp.populateTable(ctx, table) {
			result.SuccessfulTables = append(result.SuccessfulTables, name)
			result.TotalRecords += dp.WrittenRows[name]
		} else {
			dp.FailedTables[name] = true
			result.FailedTables = append(result.FailedTables, name)
		}
	}

	return result
}

// populateTable writes a single table to the sink
func (dp *DatasetPopulator) populateTable(ctx context.Context, table models.Table) bool {
	name := table.Info().Name
	dp.Logger.Infof("Populating table: %s", name)
	start := time.Now()

	written, err := dp.Sink.Write(ctx, table)
	if err != nil {
		dp.Logger.Errorf("Error writing table %s: %v", name, err)
		return false
	}

	dp.WrittenRows[name] = written
	dp.Logger.Infof("Successfully populated table %s with %d records in %s",
		name, written, time.Since(start).Round(time.Millisecond))
	return true
}
