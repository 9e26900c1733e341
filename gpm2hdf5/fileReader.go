package main

import (
	"fmt"
	"io"
	"os"

	gpm "github.com/next-exp/gpm_go/pkg"
)

type FileReader struct {
	events   *gpm.EventReader
	EvtCount int
}

func NewFileReader(file *os.File) *FileReader {
	return &FileReader{events: gpm.NewEventReader(file), EvtCount: -1}
}

func (f *FileReader) getNextEvent() (*gpm.Event, error) {
	for {
		event, err := f.events.Next()
		if err != nil {
			return event, err
		}
		f.EvtCount++
		if f.EvtCount >= configuration.MaxEvents {
			if configuration.Verbosity > 0 {
				logger.Info("Max events reached", "fileReader")
			}
			return nil, io.EOF
		}
		if f.EvtCount < configuration.Skip {
			if configuration.Verbosity > 0 {
				message := fmt.Sprintf("Skipping event %d with number %d", f.EvtCount, event.Number)
				logger.Info(message, "fileReader")
			}
			continue
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Reading event %d with number %d, channels %v", f.EvtCount, event.Number, event.Channels())
			logger.Info(message, "fileReader")
		}
		return event, nil
	}
}
