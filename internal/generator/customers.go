package generator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// Validate checks the customer parameters without generating anything
func (p CustomerParams) Validate() error {
	v := newViolations("customers")
	v.positive("num_customers", p.Count)
	if len(p.Countries) == 0 {
		v.add("countries", "a non-empty list", p.Countries)
	} else if len(p.Countries) > math.MaxUint8+1 {
		v.add("countries", "a list of at most 256 entries", len(p.Countries))
	}
	v.weights("country_weights", p.CountryWeights, len(p.Countries))
	if p.IncomeMin < 0 {
		v.add("annual_income_min", ">= 0", p.IncomeMin)
	}
	v.ordered("annual_income_min", "annual_income_max", p.IncomeMin, p.IncomeMax)
	if p.TenureMin < 0 {
		v.add("job_tenure_min", ">= 0", p.TenureMin)
	}
	v.ordered("job_tenure_min", "job_tenure_max", p.TenureMin, p.TenureMax)
	if p.EmployeeProbability < 0 || p.EmployeeProbability > 1 || math.IsNaN(p.EmployeeProbability) {
		v.add("bank_employee_probability", "within [0, 1]", p.EmployeeProbability)
	}
	v.positive("join_window_days", p.JoinWindowDays)
	return v.err()
}

// GenerateCustomers builds the customer dimension with cust_id 1..Count
func (dg *DataGenerator) GenerateCustomers(ctx context.Context, p CustomerParams) (*models.CustomerTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	dg.Logger.Infof("Generating %d customers", p.Count)

	t := models.NewCustomerTable(p.Count, append([]string(nil), p.Countries...))
	countries := NewChoice(len(p.Countries), p.CountryWeights)
	income := IntRange{Min: p.IncomeMin, Max: p.IncomeMax}
	tenure := IntRange{Min: p.TenureMin, Max: p.TenureMax}
	employee := Bernoulli{P: p.EmployeeProbability}
	joined := DateWindow{End: dg.AsOf, Days: p.JoinWindowDays}

	err := dg.forEachChunk(ctx, customerStage, p.Count, func(r *rand.Rand, chunk, lo, hi int) error {
		for i := lo; i < hi; i++ {
			t.CustID[i] = int64(i + 1)
		}
		names := dg.Names(chunkSeed(dg.Seed, customerStage|nameStream, chunk))
		for i := lo; i < hi; i++ {
			t.Name[i] = names.Name()
		}
		for i := lo; i < hi; i++ {
			t.Country[i] = uint8(countries.Sample(r))
		}
		income.Fill(r, t.AnnualIncome[lo:hi])
		tenure.Fill(r, t.JobTenureYears[lo:hi])
		for i := lo; i < hi; i++ {
			t.IsBankEmployee[i] = employee.Sample(r)
		}
		for i := lo; i < hi; i++ {
			t.JoinDate[i] = joined.Sample(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dg.logStage(models.CustomersTable, t.Len(), start)
	return t, nil
}
