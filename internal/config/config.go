package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vitebski/bank-dataset-generator/internal/generator"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// EnvPrefix prefixes every environment variable read through viper
const EnvPrefix = "BANKGEN"

// Sinks accepted by --sink
const (
	SinkCSV      = "csv"
	SinkMySQL    = "mysql"
	SinkPostgres = "postgres"
)

// Config holds the configuration of one run
type Config struct {
	Params generator.Params
	// SeedSet is false when the seed was drawn from the clock
	SeedSet bool

	Sink        string
	OutputDir   string
	Progress    bool
	BatchSize   int
	PostgresURL string
	MySQL       struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
	}
}

// RegisterFlags defines every configuration flag with its default
func RegisterFlags(fs *pflag.FlagSet) {
	d := generator.DefaultParams()

	fs.IntP("num-customers", "c", d.Customers.Count, "Number of customers to generate")
	fs.StringSlice("countries", d.Customers.Countries, "Customer countries")
	fs.Float64Slice("country-weights", nil, "Relative weight of each country (default: uniform)")
	fs.Int64("income-min", d.Customers.IncomeMin, "Minimum annual income")
	fs.Int64("income-max", d.Customers.IncomeMax, "Maximum annual income")
	fs.Int64("tenure-min", d.Customers.TenureMin, "Minimum job tenure in years")
	fs.Int64("tenure-max", d.Customers.TenureMax, "Maximum job tenure in years")
	fs.Float64("employee-probability", d.Customers.EmployeeProbability, "Probability that a customer is a bank employee")
	fs.Int("join-window-days", d.Customers.JoinWindowDays, "Join dates fall within this many days before the as-of date")

	fs.IntP("num-transactions", "t", d.Transactions.Count, "Number of transactions to generate")
	fs.Float64("amount-min", d.Transactions.AmountMin, "Minimum transaction amount")
	fs.Float64("amount-max", d.Transactions.AmountMax, "Maximum transaction amount")
	fs.Int("txn-window-days", d.Transactions.WindowDays, "Transaction dates fall within this many days before the as-of date")

	fs.Float64("loan-penetration-rate", d.Loans.PenetrationRate, "Loans generated per customer, as a fraction of the customer count")
	fs.Int("num-loans", 0, "Exact number of loans (overrides --loan-penetration-rate)")
	fs.Float64Slice("loan-status-weights", nil, "Relative weight of Active, Closed and Defaulted (default: uniform)")
	fs.Int64("outstanding-min", d.Loans.OutstandingMin, "Minimum outstanding loan amount")
	fs.Int64("outstanding-max", d.Loans.OutstandingMax, "Maximum outstanding loan amount")

	fs.Int64P("seed", "s", 0, "Random seed (default: drawn from the clock and logged)")
	fs.String("as-of", "", "End date of every date window, YYYY-MM-DD (default: today)")
	fs.IntP("workers", "w", 0, "Concurrent chunk workers (default: GOMAXPROCS)")
	fs.Int("chunk-size", generator.DefaultChunkSize, "Rows generated per random source")

	fs.String("sink", SinkCSV, "Output sink: csv, mysql or postgres")
	fs.StringP("output-dir", "o", "out", "Directory for CSV output")
	fs.Bool("progress", false, "Show a progress bar while writing CSV files")
	fs.IntP("batch-size", "b", 1000, "Rows per INSERT statement for the mysql sink")
	fs.String("postgres-url", "", "PostgreSQL connection string (or POSTGRES_URL)")
	fs.StringP("host", "H", "", "MySQL host (or MYSQL_HOST, default: localhost)")
	fs.StringP("user", "u", "", "MySQL user (or MYSQL_USER, default: root)")
	fs.StringP("password", "p", "", "MySQL password (or MYSQL_PASSWORD)")
	fs.StringP("database", "d", "", "MySQL database name (or MYSQL_DATABASE)")
	fs.StringP("port", "P", "", "MySQL port (or MYSQL_PORT, default: 3306)")
}

// NewViper returns a viper instance reading BANKGEN_* variables, the
// optional config file and the given flags, in viper's usual precedence
func NewViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load builds the run configuration. Parameter ranges are not checked here;
// each generation stage validates its own parameters.
func Load(v *viper.Viper, logger *logrus.Logger) (*Config, error) {
	cfg := &Config{}
	p := generator.DefaultParams()

	p.Customers.Count = v.GetInt("num-customers")
	if countries := listValue(v, "countries"); len(countries) > 0 {
		p.Customers.Countries = countries
	}
	weights, err := floatSlice(v, "country-weights")
	if err != nil {
		return nil, err
	}
	p.Customers.CountryWeights = weights
	p.Customers.IncomeMin = v.GetInt64("income-min")
	p.Customers.IncomeMax = v.GetInt64("income-max")
	p.Customers.TenureMin = v.GetInt64("tenure-min")
	p.Customers.TenureMax = v.GetInt64("tenure-max")
	p.Customers.EmployeeProbability = v.GetFloat64("employee-probability")
	p.Customers.JoinWindowDays = v.GetInt("join-window-days")

	if v.IsSet("merchants") {
		var catalog []generator.MerchantSpec
		if err := v.UnmarshalKey("merchants", &catalog); err != nil {
			return nil, fmt.Errorf("invalid merchants catalog: %w", err)
		}
		p.Merchants.Catalog = catalog
	}

	p.Transactions.Count = v.GetInt("num-transactions")
	p.Transactions.AmountMin = v.GetFloat64("amount-min")
	p.Transactions.AmountMax = v.GetFloat64("amount-max")
	p.Transactions.WindowDays = v.GetInt("txn-window-days")

	p.Loans.PenetrationRate = v.GetFloat64("loan-penetration-rate")
	p.Loans.Count = v.GetInt("num-loans")
	if weights, err = floatSlice(v, "loan-status-weights"); err != nil {
		return nil, err
	}
	p.Loans.StatusWeights = weights
	p.Loans.OutstandingMin = v.GetInt64("outstanding-min")
	p.Loans.OutstandingMax = v.GetInt64("outstanding-max")

	if v.IsSet("seed") {
		p.Seed = v.GetInt64("seed")
		cfg.SeedSet = true
	} else {
		p.Seed = time.Now().UnixNano()
		logger.Infof("No seed configured, using %d (pass --seed %d to reproduce this run)", p.Seed, p.Seed)
	}
	if asOf := v.GetString("as-of"); asOf != "" {
		date, err := models.ParseDate(asOf)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-of: %w", err)
		}
		p.AsOf = date
	}
	p.Workers = v.GetInt("workers")
	p.ChunkSize = v.GetInt("chunk-size")
	cfg.Params = p

	cfg.Sink = strings.ToLower(v.GetString("sink"))
	switch cfg.Sink {
	case SinkCSV, SinkMySQL, SinkPostgres:
	default:
		return nil, fmt.Errorf("unknown sink %q (use csv, mysql or postgres)", cfg.Sink)
	}
	cfg.OutputDir = v.GetString("output-dir")
	cfg.Progress = v.GetBool("progress")
	cfg.BatchSize = v.GetInt("batch-size")
	cfg.PostgresURL = v.GetString("postgres-url")
	cfg.MySQL.Host = v.GetString("host")
	cfg.MySQL.Port = v.GetString("port")
	cfg.MySQL.User = v.GetString("user")
	cfg.MySQL.Password = v.GetString("password")
	cfg.MySQL.Database = v.GetString("database")

	return cfg, nil
}

// listValue normalizes a list given as a flag, a config file list or a
// comma separated environment variable
func listValue(v *viper.Viper, key string) []string {
	var items []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case []string:
		items = val
	case []interface{}:
		for _, e := range val {
			items = append(items, cast.ToString(e))
		}
	case []float64:
		for _, f := range val {
			items = append(items, cast.ToString(f))
		}
	default:
		items = []string{cast.ToString(val)}
	}

	var out []string
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), "[]")
		for _, f := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, f)
		}
	}
	return out
}

func floatSlice(v *viper.Viper, key string) ([]float64, error) {
	var out []float64
	for _, s := range listValue(v, key) {
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", key, s, err)
		}
		out = append(out, f)
	}
	return out, nil
}
