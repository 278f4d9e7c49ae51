package generator

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// CustomerParams configures the customer dimension
type CustomerParams struct {
	Count               int
	Countries           []string
	CountryWeights      []float64
	IncomeMin           int64
	IncomeMax           int64
	TenureMin           int64
	TenureMax           int64
	EmployeeProbability float64
	JoinWindowDays      int
}

// MerchantSpec is one catalog entry. Ids are assigned in catalog order.
type MerchantSpec struct {
	Name     string `mapstructure:"name" json:"name"`
	Category string `mapstructure:"category" json:"category"`
}

// MerchantParams configures the merchant catalog
type MerchantParams struct {
	Catalog []MerchantSpec
}

// TransactionParams configures the transaction fact table
type TransactionParams struct {
	Count      int
	AmountMin  float64
	AmountMax  float64
	WindowDays int
}

// LoanParams configures the loan fact table. Count overrides PenetrationRate when positive.
type LoanParams struct {
	Count           int
	PenetrationRate float64
	StatusWeights   []float64
	OutstandingMin  int64
	OutstandingMax  int64
}

// Params is the complete configuration of one generation run
type Params struct {
	Customers    CustomerParams
	Merchants    MerchantParams
	Transactions TransactionParams
	Loans        LoanParams
	Seed         int64
	AsOf         models.Date
	Workers      int
	ChunkSize    int
}

// Domain holds the id domains fact tables sample foreign keys from
type Domain struct {
	Customers int
	Merchants int
}

// Domain returns the id domains declared by p
func (p Params) Domain() Domain {
	return Domain{Customers: p.Customers.Count, Merchants: len(p.Merchants.Catalog)}
}

// DefaultCountries is the default customer country set
var DefaultCountries = []string{"US", "IN", "GB", "DE", "FR", "UAE"}

// DefaultMerchants is the default merchant catalog
var DefaultMerchants = []MerchantSpec{
	{Name: "Grand Casino", Category: models.CategoryGambling},
	{Name: "BetWay Online", Category: models.CategoryGambling},
	{Name: "Whole Foods", Category: models.CategoryEssentials},
	{Name: "Walmart", Category: models.CategoryEssentials},
	{Name: "Apple Store", Category: models.CategoryElectronics},
	{Name: "Steam Games", Category: models.CategoryEntertainment},
}

// DefaultParams returns the reference configuration: 100k customers,
// 2M transactions and a 40% loan penetration rate
func DefaultParams() Params {
	return Params{
		Customers: CustomerParams{
			Count:               100000,
			Countries:           append([]string(nil), DefaultCountries...),
			IncomeMin:           25000,
			IncomeMax:           150000,
			TenureMin:           0,
			TenureMax:           20,
			EmployeeProbability: 0.02,
			JoinWindowDays:      3 * 365,
		},
		Merchants: MerchantParams{
			Catalog: append([]MerchantSpec(nil), DefaultMerchants...),
		},
		Transactions: TransactionParams{
			Count:      2000000,
			AmountMin:  10,
			AmountMax:  5000,
			WindowDays: 365,
		},
		Loans: LoanParams{
			PenetrationRate: 0.4,
			OutstandingMin:  1000,
			OutstandingMax:  50000,
		},
		AsOf:      models.DateOf(time.Now()),
		ChunkSize: DefaultChunkSize,
	}
}

// DataGenerator produces the four tables. Every stage draws from random
// sources derived from Seed, so output is a function of (params, Seed, AsOf).
type DataGenerator struct {
	Seed      int64
	AsOf      models.Date
	Workers   int
	ChunkSize int
	Names     NameProviderFactory
	Logger    *logrus.Logger
}

// NewDataGenerator creates a new data generator
func NewDataGenerator(seed int64, asOf models.Date, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Seed:      seed,
		AsOf:      asOf,
		ChunkSize: DefaultChunkSize,
		Names:     FakerNames,
		Logger:    logger,
	}
}

func (dg *DataGenerator) workers() int {
	if dg.Workers > 0 {
		return dg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (dg *DataGenerator) chunkSize() int {
	if dg.ChunkSize > 0 {
		return dg.ChunkSize
	}
	return DefaultChunkSize
}

func (dg *DataGenerator) logStage(table string, rows int, start time.Time) {
	dg.Logger.WithFields(logrus.Fields{
		"table":    table,
		"rows":     rows,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Generated table")
}
