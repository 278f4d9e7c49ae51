package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// Validate checks the transaction parameters against the id domains
func (p TransactionParams) Validate(d Domain) error {
	v := newViolations("transactions")
	v.positive("num_transactions", p.Count)
	v.positive("num_customers", d.Customers)
	v.positive("num_merchants", d.Merchants)
	switch {
	case math.IsNaN(p.AmountMin) || math.IsInf(p.AmountMin, 0) || p.AmountMin < 0:
		v.add("amount_min", "a finite value >= 0", p.AmountMin)
	case math.IsNaN(p.AmountMax) || math.IsInf(p.AmountMax, 0):
		v.add("amount_max", "finite", p.AmountMax)
	case p.AmountMin > p.AmountMax:
		v.add("amount_max", fmt.Sprintf(">= amount_min (%.2f)", p.AmountMin), p.AmountMax)
	default:
		if _, ok := NewCentsRange(p.AmountMin, p.AmountMax); !ok {
			v.add("amount_max", "at least one cent above amount_min", p.AmountMax)
		}
	}
	v.positive("txn_window_days", p.WindowDays)
	return v.err()
}

// GenerateTransactions builds the transaction fact table. Foreign keys are
// drawn from the declared domains only, so every cust_id and m_id exists by
// construction and no other table is consulted.
func (dg *DataGenerator) GenerateTransactions(ctx context.Context, p TransactionParams, d Domain) (*models.TransactionTable, error) {
	if err := p.Validate(d); err != nil {
		return nil, err
	}
	start := time.Now()
	dg.Logger.Infof("Generating %d transactions over %d customers and %d merchants", p.Count, d.Customers, d.Merchants)

	t := models.NewTransactionTable(p.Count)
	customers := IntRange{Min: 1, Max: int64(d.Customers)}
	merchants := IntRange{Min: 1, Max: int64(d.Merchants)}
	amount, _ := NewCentsRange(p.AmountMin, p.AmountMax)
	window := DateWindow{End: dg.AsOf, Days: p.WindowDays}

	err := dg.forEachChunk(ctx, transactionStage, p.Count, func(r *rand.Rand, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			t.TxnID[i] = int64(i + 1)
		}
		customers.Fill(r, t.CustID[lo:hi])
		merchants.Fill(r, t.MID[lo:hi])
		for i := lo; i < hi; i++ {
			t.Amount[i] = amount.Sample(r)
		}
		for i := lo; i < hi; i++ {
			t.TxnDate[i] = window.Sample(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dg.logStage(models.TransactionsTable, t.Len(), start)
	return t, nil
}
