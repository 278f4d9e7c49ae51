package analyzer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
	"github.com/yourbasic/graph"
)

// SchemaAnalyzer analyzes the dataset schema, detects dependencies between
// tables and orders them for generation and population
type SchemaAnalyzer struct {
	Tables          []string
	TableInfo       map[string]models.TableInfo
	ForeignKeys     map[string][]models.ForeignKey
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	Logger          *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		TableInfo:     make(map[string]models.TableInfo),
		ForeignKeys:   make(map[string][]models.ForeignKey),
		TableIndexMap: make(map[string]int),
		IndexTableMap: make(map[int]string),
		Logger:        logger,
	}
}

// AnalyzeSchema registers the given tables and builds the dependency graph.
// An edge runs from a referenced table to the table referencing it.
func (sa *SchemaAnalyzer) AnalyzeSchema(schemas []models.TableInfo) error {
	for i, info := range schemas {
		if _, dup := sa.TableIndexMap[info.Name]; dup {
			return fmt.Errorf("table %s declared twice", info.Name)
		}
		sa.Tables = append(sa.Tables, info.Name)
		sa.TableInfo[info.Name] = info
		sa.TableIndexMap[info.Name] = i
		sa.IndexTableMap[i] = info.Name
	}

	sa.DependencyGraph = graph.New(len(sa.Tables))
	for _, info := range schemas {
		for _, fk := range info.ForeignKeys {
			refIdx, ok := sa.TableIndexMap[fk.ReferencedTable]
			if !ok {
				return fmt.Errorf("foreign key %s.%s references unknown table %s", fk.Table, fk.Column, fk.ReferencedTable)
			}
			sa.ForeignKeys[info.Name] = append(sa.ForeignKeys[info.Name], fk)
			if fk.ReferencedTable != info.Name {
				sa.DependencyGraph.Add(refIdx, sa.TableIndexMap[info.Name])
			}
		}
	}

	if !graph.Acyclic(sa.DependencyGraph) {
		return fmt.Errorf("circular foreign key dependencies between tables")
	}

	sa.Logger.Debugf("Analyzed %d tables, %d with foreign keys", len(sa.Tables), len(sa.ForeignKeys))
	return nil
}

// GetTableInsertionOrder returns the tables with every referenced table
// before the tables referencing it
func (sa *SchemaAnalyzer) GetTableInsertionOrder() []string {
	var ordered []string
	for _, level := range sa.GetStageLevels() {
		ordered = append(ordered, level...)
	}
	return ordered
}

// GetStageLevels groups tables by dependency depth. Tables in the same level
// do not depend on each other and can be generated concurrently.
func (sa *SchemaAnalyzer) GetStageLevels() [][]string {
	if sa.DependencyGraph == nil {
		return nil
	}
	order, ok := graph.TopSort(sa.DependencyGraph)
	if !ok {
		return nil
	}

	depth := make([]int, len(sa.Tables))
	maxDepth := 0
	for _, v := range order {
		sa.DependencyGraph.Visit(v, func(w int, _ int64) bool {
			if depth[v]+1 > depth[w] {
				depth[w] = depth[v] + 1
			}
			return false
		})
		if depth[v] > maxDepth {
			maxDepth = depth[v]
		}
	}

	levels := make([][]string, maxDepth+1)
	for i, table := range sa.Tables {
		levels[depth[i]] = append(levels[depth[i]], table)
	}
	return levels
}

// GetDependents returns the tables that reference table, sorted by name
func (sa *SchemaAnalyzer) GetDependents(table string) []string {
	idx, ok := sa.TableIndexMap[table]
	if !ok || sa.DependencyGraph == nil {
		return nil
	}
	var dependents []string
	sa.DependencyGraph.Visit(idx, func(w int, _ int64) bool {
		dependents = append(dependents, sa.IndexTableMap[w])
		return false
	})
	sort.Strings(dependents)
	return dependents
}
