package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	gpm "github.com/next-exp/gpm_go/pkg"
)

var configuration Configuration

var logger gpm.SlogLogger

func init() {
	logger = gpm.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	os.Exit(run())
}

func run() int {
	configFilename := flag.String("config", "", "Configuration file path")
	fileIn := flag.String("in", "", "Acquisition file (.dat)")
	fileOut := flag.String("out", "", "HDF5 output file, defaults to the input name with .h5")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	if *fileIn != "" {
		configuration.FileIn = *fileIn
	}
	if *fileOut != "" {
		configuration.FileOut = *fileOut
	}
	if configuration.FileIn == "" {
		logger.Error("No input file given")
		return 1
	}
	if configuration.FileOut == "" {
		configuration.FileOut = strings.TrimSuffix(configuration.FileIn, ".dat") + ".h5"
	}
	gpm.SetLogger(logger)
	if configuration.Verbosity > 0 {
		printConfiguration(configuration, logger)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	defer file.Close()

	writer, err := NewWriter(configuration.FileOut, configuration.Compression)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	status := 0
	if err := convert(NewFileReader(file), writer); err != nil {
		logger.Error(err.Error())
		status = 1
	}
	if err := writer.Close(); err != nil {
		logger.Error(err.Error())
		status = 1
	}
	logger.Info(fmt.Sprintf("Events written: %d, blocks: %d", writer.EvtCounter, writer.BlkCounter), "main")
	return status
}

func convert(reader *FileReader, writer *Writer) error {
	for {
		event, err := reader.getNextEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				message := "File ends inside a block, last event dropped"
				if event != nil {
					message = fmt.Sprintf("File ends inside a block, event %d dropped with %d complete blocks", event.Number, len(event.Blocks))
				}
				logger.Warn(message, "main")
				return nil
			}
			return fmt.Errorf("error reading event: %w", err)
		}
		if err := writer.WriteEvent(event); err != nil {
			return err
		}
	}
}
