package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/bank-dataset-generator/internal/analyzer"
	"github.com/vitebski/bank-dataset-generator/internal/config"
	"github.com/vitebski/bank-dataset-generator/internal/connector"
	"github.com/vitebski/bank-dataset-generator/internal/generator"
	"github.com/vitebski/bank-dataset-generator/internal/populator"
	"github.com/vitebski/bank-dataset-generator/internal/utils"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

func main() {
	var (
		envFile    string
		configFile string
		logLevel   string
		planOnly   bool
		verify     bool
	)

	rootCmd := &cobra.Command{
		Use:   "bank-dataset-generator",
		Short: "A tool to generate synthetic banking datasets",
		Long: `Bank Dataset Generator

A Go tool that generates a synthetic banking dataset (customers, merchants,
transactions and loans) with referential integrity by construction, and
writes it to CSV files, MySQL or PostgreSQL.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			v, err := config.NewViper(cmd.Flags(), configFile)
			if err != nil {
				logger.Errorf("Failed to load configuration: %v", err)
				os.Exit(1)
			}
			cfg, err := config.Load(v, logger)
			if err != nil {
				logger.Errorf("Invalid configuration: %v", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			code := run(ctx, cfg, planOnly, verify, logger)
			stop()
			os.Exit(code)
		},
	}

	config.RegisterFlags(rootCmd.Flags())
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML, TOML or JSON config file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&planOnly, "plan-only", "a", false, "Only print the schema analysis and generation plan")
	rootCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify primary keys, foreign keys and written row counts")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run executes one generation run and returns the process exit code
func run(ctx context.Context, cfg *config.Config, planOnly, verify bool, logger *logrus.Logger) int {
	schemaAnalyzer := analyzer.NewSchemaAnalyzer(logger)
	if err := schemaAnalyzer.AnalyzeSchema(models.Schemas()); err != nil {
		logger.Errorf("Failed to analyze schema: %v", err)
		return 1
	}

	utils.PrintSchemaAnalysis(schemaAnalyzer, cfg.Params)
	if planOnly {
		logger.Info("Plan-only mode, exiting without generating data")
		return 0
	}

	start := time.Now()
	engine := generator.NewEngine(cfg.Params, schemaAnalyzer, logger)
	ds, genErr := engine.Generate(ctx)
	if genErr != nil && !errors.Is(genErr, generator.ErrInvalidParameter) {
		logger.Errorf("Generation failed: %v", genErr)
		return 1
	}
	if genErr != nil {
		logger.Warningf("Some stages were skipped, writing the remaining tables")
	}

	sink, querier, err := newSink(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to set up %s sink: %v", cfg.Sink, err)
		return 1
	}
	if csvSink, ok := sink.(*populator.CSVSink); ok && genErr != nil {
		var merr *multierror.Error
		if errors.As(genErr, &merr) {
			for _, e := range merr.Errors {
				csvSink.Manifest.AddError(e)
			}
		} else {
			csvSink.Manifest.AddError(genErr)
		}
	}

	if err := sink.Open(ctx); err != nil {
		logger.Errorf("Failed to open %s sink: %v", cfg.Sink, err)
		return 1
	}

	datasetPopulator := populator.NewDatasetPopulator(sink, schemaAnalyzer, logger)
	logger.Infof("Writing dataset to %s sink...", cfg.Sink)
	result := datasetPopulator.PopulateDataset(ctx, ds)

	verificationSuccess := true
	if verify {
		d := cfg.Params.Domain()
		verification := schemaAnalyzer.VerifyDataset(ds, map[string]int{
			models.CustomersTable: d.Customers,
			models.MerchantsTable: d.Merchants,
		})
		verificationSuccess = verification.Success

		var checks []utils.TableCheck
		if querier != nil {
			tables := ds.Tables()
			expected := make(map[string]int64)
			for _, name := range result.SuccessfulTables {
				expected[name] = int64(tables[name].Len())
			}
			var ok bool
			ok, checks = utils.VerifyTablePopulation(ctx, querier, schemaAnalyzer, expected, logger)
			verificationSuccess = verificationSuccess && ok
		}
		utils.PrintVerificationResults(verification, checks)
	}

	closeErr := sink.Close(ctx)
	if closeErr != nil {
		logger.Errorf("Failed to close %s sink: %v", cfg.Sink, closeErr)
	}

	utils.PrintSummary(schemaAnalyzer.Tables, result, cfg.Sink, time.Since(start))

	if genErr != nil || closeErr != nil || len(result.FailedTables) > 0 || !verificationSuccess {
		return 1
	}
	return 0
}

// newSink builds the configured sink. Database sinks also return the
// connector used to verify the written tables.
func newSink(cfg *config.Config, logger *logrus.Logger) (populator.Sink, utils.Querier, error) {
	switch cfg.Sink {
	case config.SinkMySQL:
		db := connector.NewDatabaseConnector(cfg.MySQL.Host, cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Database, cfg.MySQL.Port, logger)
		if !utils.ValidateConnectionParams(db.Host, db.User, db.Password, db.Database, db.Port, logger) {
			return nil, nil, fmt.Errorf("invalid MySQL connection parameters")
		}
		return populator.NewMySQLSink(db, cfg.BatchSize, logger), db, nil
	case config.SinkPostgres:
		pg := connector.NewPgConnector(cfg.PostgresURL, logger)
		return populator.NewPostgresSink(pg, logger), pg, nil
	default:
		sink := populator.NewCSVSink(cfg.OutputDir, cfg.Progress, logger)
		sink.Manifest = populator.NewManifest(cfg.Params.Seed, cfg.Params.AsOf)
		return sink, nil, nil
	}
}
