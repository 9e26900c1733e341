package main

import (
	"encoding/json"
	"fmt"
	"os"

	gpm "github.com/next-exp/gpm_go/pkg"
)

// LoadConfiguration reads the JSON session settings. An empty filename
// keeps the defaults.
func LoadConfiguration(filename string) (gpm.Configuration, error) {
	config := gpm.DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config gpm.Configuration, logger gpm.SlogLogger) {
	logger.Info(fmt.Sprintf("Params: %s", config.Params), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Print every: %d", config.PrintEvery), "config")
	logger.Info(fmt.Sprintf("Simulate: %t", config.Simulate), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Metrics address: %s", config.MetricsAddr), "config")
}
