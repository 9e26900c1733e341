package main

import (
	"encoding/json"
	"fmt"
	"os"

	gpm "github.com/next-exp/gpm_go/pkg"
)

type Configuration struct {
	FileIn      string `json:"file_in"`
	FileOut     string `json:"file_out"`
	Compression int    `json:"compression"`
	MaxEvents   int    `json:"max_events"`
	Skip        int    `json:"skip"`
	Verbosity   int    `json:"verbosity"`
}

func LoadConfiguration(filename string) (Configuration, error) {
	var config Configuration

	// Set default values
	config.Compression = 4
	config.MaxEvents = 1000000000
	config.Skip = 0
	config.Verbosity = 0

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

func printConfiguration(config Configuration, logger gpm.SlogLogger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Compression: %d", config.Compression), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
