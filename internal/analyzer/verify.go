package analyzer

import (
	"fmt"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// maxViolationsPerTable caps how many offending rows are reported per table
const maxViolationsPerTable = 10

// VerifyDataset checks that every generated table has a dense primary key
// 1..n and that every foreign key lies in the referenced id domain. domains
// gives the size of a referenced table's id domain when that table was not
// generated in this run.
func (sa *SchemaAnalyzer) VerifyDataset(ds *models.Dataset, domains map[string]int) models.VerificationResult {
	tables := ds.Tables()
	result := models.VerificationResult{Violations: make(map[string][]string)}

	report := func(table, msg string) {
		if len(result.Violations[table]) < maxViolationsPerTable {
			result.Violations[table] = append(result.Violations[table], msg)
		}
	}

	for _, name := range sa.GetTableInsertionOrder() {
		table, ok := tables[name]
		if !ok {
			continue
		}
		info := sa.TableInfo[name]

		pk := table.IntColumn(info.PrimaryKey)
		if len(pk) != table.Len() {
			report(name, fmt.Sprintf("primary key %s has %d values for %d rows", info.PrimaryKey, len(pk), table.Len()))
		}
		for i, id := range pk {
			if id != int64(i+1) {
				report(name, fmt.Sprintf("row %d: %s = %d, want %d", i, info.PrimaryKey, id, i+1))
			}
		}

		for _, fk := range sa.ForeignKeys[name] {
			size, known := domains[fk.ReferencedTable]
			if ref, ok := tables[fk.ReferencedTable]; ok {
				size, known = ref.Len(), true
			}
			if !known {
				report(name, fmt.Sprintf("no id domain for %s referenced by %s", fk.ReferencedTable, fk.Column))
				continue
			}
			for i, id := range table.IntColumn(fk.Column) {
				if id < 1 || id > int64(size) {
					report(name, fmt.Sprintf("row %d: %s = %d outside [1, %d]", i, fk.Column, id, size))
				}
			}
		}
	}

	for table, msgs := range result.Violations {
		sa.Logger.Warningf("Table %s failed verification: %d issue(s)", table, len(msgs))
	}
	result.Success = len(result.Violations) == 0
	return result
}
