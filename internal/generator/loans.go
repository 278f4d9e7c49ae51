package generator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// RowCount returns the number of loans to generate for the given customer population
func (p LoanParams) RowCount(customers int) int {
	if p.Count > 0 {
		return p.Count
	}
	return int(math.Round(p.PenetrationRate * float64(customers)))
}

// Validate checks the loan parameters against the customer domain
func (p LoanParams) Validate(customers int) error {
	v := newViolations("loans")
	v.positive("num_customers", customers)
	if p.Count < 0 {
		v.add("num_loans", "> 0", p.Count)
	} else if p.Count == 0 {
		if p.PenetrationRate <= 0 || p.PenetrationRate > 1 || math.IsNaN(p.PenetrationRate) {
			v.add("loan_penetration_rate", "within (0, 1]", p.PenetrationRate)
		} else if customers > 0 {
			v.positive("num_loans (derived from loan_penetration_rate)", p.RowCount(customers))
		}
	}
	v.weights("loan_status_weights", p.StatusWeights, len(models.LoanStatuses))
	if p.OutstandingMin < 0 {
		v.add("outstanding_min", ">= 0", p.OutstandingMin)
	}
	v.ordered("outstanding_min", "outstanding_max", p.OutstandingMin, p.OutstandingMax)
	return v.err()
}

// GenerateLoans builds the loan fact table. Customers are drawn with
// replacement, so one customer may hold several loans or none.
func (dg *DataGenerator) GenerateLoans(ctx context.Context, p LoanParams, customers int) (*models.LoanTable, error) {
	if err := p.Validate(customers); err != nil {
		return nil, err
	}
	start := time.Now()
	n := p.RowCount(customers)
	dg.Logger.Infof("Generating %d loans over %d customers", n, customers)

	t := models.NewLoanTable(n)
	custIDs := IntRange{Min: 1, Max: int64(customers)}
	statuses := NewChoice(len(models.LoanStatuses), p.StatusWeights)
	outstanding := IntRange{Min: p.OutstandingMin, Max: p.OutstandingMax}

	err := dg.forEachChunk(ctx, loanStage, n, func(r *rand.Rand, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			t.LoanID[i] = int64(i + 1)
		}
		custIDs.Fill(r, t.CustID[lo:hi])
		for i := lo; i < hi; i++ {
			t.LoanStatus[i] = models.LoanStatuses[statuses.Sample(r)]
		}
		outstanding.Fill(r, t.OutstandingAmt[lo:hi])
		return nil
	})
	if err != nil {
		return nil, err
	}

	dg.logStage(models.LoansTable, t.Len(), start)
	return t, nil
}
