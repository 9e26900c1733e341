package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sqlx "github.com/jmoiron/sqlx"
	gpm "github.com/next-exp/gpm_go/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var dbConn *sqlx.DB
var configuration gpm.Configuration

var logger gpm.SlogLogger

func init() {
	logger = gpm.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	os.Exit(run())
}

func run() int {
	configFilename := flag.String("config", "", "Configuration file path")
	paramsFilename := flag.String("params", "", "Run parameters file, overrides the configuration")
	simulate := flag.Bool("simulate", false, "Use the simulated digitizer")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	if *paramsFilename != "" {
		configuration.Params = *paramsFilename
	}
	if *simulate {
		configuration.Simulate = true
	}
	gpm.SetConfiguration(configuration)
	gpm.SetLogger(logger)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	params, err := gpm.LoadParametersFile(configuration.Params)
	if err != nil {
		message := fmt.Errorf("Error reading parameters: %w", err)
		logger.Error(message.Error())
		return 1
	}
	params.Print()
	if err := params.Validate(); err != nil {
		var incomplete *gpm.ErrConfigIncomplete
		if errors.As(err, &incomplete) {
			for _, field := range incomplete.Missing {
				logger.Error(fmt.Sprintf("Missing parameter: %s", field))
			}
		}
		logger.Error("Configuration incomplete, not starting the acquisition")
		return 1
	}

	open := hardwareOpen
	if configuration.Simulate || gpm.SimulationRequested(params.Run.DriverOptions) {
		logger.Info("Using simulated digitizer", "main")
		open = gpm.OpenSimulated
	}
	if open == nil {
		logger.Error("Built without digitizer support, rebuild with -tags agmd2 or run with -simulate")
		return 1
	}

	opts := gpm.Options{
		OutputDir:  configuration.OutputDir,
		PrintEvery: configuration.PrintEvery,
	}
	if params.Run.Draw {
		opts.Display = gpm.TextDisplay{}
	}

	if configuration.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Metrics = gpm.NewMetrics(reg)
		srv := startMetrics(configuration.MetricsAddr, reg)
		defer stopMetrics(srv)
	}

	if !configuration.NoDB {
		dbConn, err = gpm.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connection to database: %w", err)
			logger.Error(message.Error())
			return 1
		}
		defer dbConn.Close()
		opts.RunLog = gpm.NewRunLog(dbConn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	acquisition := gpm.NewAcquisition(params, open, opts)
	summary, err := acquisition.Run(ctx)
	reportSummary(summary)
	if err != nil {
		message := fmt.Errorf("Acquisition failed: %w", err)
		logger.Error(message.Error())
		return 1
	}
	return 0
}

func reportSummary(summary gpm.RunSummary) {
	if summary.Filename != "" {
		logger.Info(fmt.Sprintf("Output file: %s", summary.Filename), "main")
	}
	message := fmt.Sprintf("Iterations: %d, accepted: %d, saturated: %d, blocks: %d, bytes: %d",
		summary.Iterations, summary.Accepted, summary.Saturated, summary.Blocks, summary.Bytes)
	logger.Info(message, "main")
	if summary.DriverWarnings > 0 {
		logger.Info(fmt.Sprintf("Driver warnings: %d", summary.DriverWarnings), "main")
	}
	if summary.Interrupted {
		logger.Info("Acquisition interrupted", "main")
	}
}
