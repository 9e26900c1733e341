package main

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	gpm "github.com/next-exp/gpm_go/pkg"
	"golang.org/x/exp/slices"
)

// Writer stores each channel as an events x samples int8 array under /RD,
// and the event list and block headers as tables under /Run.
type Writer struct {
	File        *hdf5.File
	Filename    string
	Compression int
	RunGroup    *hdf5.Group
	RDGroup     *hdf5.Group
	EventTable  *hdf5.Dataset
	HeaderTable *hdf5.Dataset
	Channels    []uint8
	Waveforms   map[uint8]*hdf5.Dataset
	Samples     map[uint8]int
	EvtCounter  int
	BlkCounter  int
}

func NewWriter(filename string, compression int) (*Writer, error) {
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")
	file, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating %s: %w", filename, err)
	}
	w := &Writer{
		File:        file,
		Filename:    filename,
		Compression: compression,
		Waveforms:   make(map[uint8]*hdf5.Dataset),
		Samples:     make(map[uint8]int),
	}
	if w.RunGroup, err = file.CreateGroup("Run"); err != nil {
		return nil, errors.Join(fmt.Errorf("error creating Run group: %w", err), w.Close())
	}
	if w.RDGroup, err = file.CreateGroup("RD"); err != nil {
		return nil, errors.Join(fmt.Errorf("error creating RD group: %w", err), w.Close())
	}
	if w.EventTable, err = createTable(w.RunGroup, "events", EventDataHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.HeaderTable, err = createTable(w.RunGroup, "headers", BlockHeaderHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

// WriteEvent appends one event. The sample count of every channel is fixed
// by the first event it appears in; longer waveforms are truncated and
// shorter ones zero padded.
func (w *Writer) WriteEvent(event *gpm.Event) error {
	if len(event.Blocks) == 0 {
		return nil
	}
	first := event.Blocks[0].Header
	entry := []EventDataHDF5{{
		evt_number: event.Number,
		timestamp:  first.InitialXTimeSeconds + first.InitialXTimeFraction,
	}}
	if err := appendRows(w.EventTable, &entry, w.EvtCounter, 1, 0); err != nil {
		return fmt.Errorf("error writing event %d: %w", event.Number, err)
	}

	headers := make([]BlockHeaderHDF5, len(event.Blocks))
	for i, b := range event.Blocks {
		headers[i] = blockHeader(b.Header)
	}
	if err := appendRows(w.HeaderTable, &headers, w.BlkCounter, len(headers), 0); err != nil {
		return fmt.Errorf("error writing headers of event %d: %w", event.Number, err)
	}
	w.BlkCounter += len(headers)

	for _, b := range event.Blocks {
		if err := w.writeWaveform(b); err != nil {
			return fmt.Errorf("error writing event %d: %w", event.Number, err)
		}
	}
	w.EvtCounter++
	return nil
}

func (w *Writer) writeWaveform(b gpm.Block) error {
	channel := b.Header.ChannelNumber
	samples := b.Samples()
	dset, ok := w.Waveforms[channel]
	if !ok {
		nSamples := len(samples)
		if nSamples == 0 {
			nSamples = 1
		}
		var err error
		dset, err = createArray(w.RDGroup, gpm.ChannelName(channel), nSamples, w.Compression)
		if err != nil {
			return err
		}
		w.Waveforms[channel] = dset
		w.Samples[channel] = nSamples
		w.Channels = append(w.Channels, channel)
		slices.Sort(w.Channels)
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Channel %d: %d samples per event", channel, nSamples)
			logger.Info(message, "writer")
		}
	}

	// Earlier events without this channel are left as zeros.
	data := make([]int8, w.Samples[channel])
	copy(data, samples)
	return appendRows(dset, &data, w.EvtCounter, 1, len(data))
}

func blockHeader(h gpm.RecordHeader) BlockHeaderHDF5 {
	return BlockHeaderHDF5{
		evt_number:              h.EventNumber,
		channel:                 int32(h.ChannelNumber),
		buffer_size:             h.BufferSize,
		actual_points:           h.ActualPoints,
		first_valid_point:       h.FirstValidPoint,
		initial_x_offset:        h.InitialXOffset,
		initial_x_time_seconds:  h.InitialXTimeSeconds,
		initial_x_time_fraction: h.InitialXTimeFraction,
		x_increment:             h.XIncrement,
		scale_factor:            h.ScaleFactor,
		scale_offset:            h.ScaleOffset,
	}
}

func (w *Writer) Close() error {
	logger.Info(fmt.Sprintf("Closing file %s", w.Filename), "writer")
	var errs []error

	for _, channel := range w.Channels {
		if err := w.Waveforms[channel].Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s waveforms: %w", gpm.ChannelName(channel), err))
		}
	}
	if w.HeaderTable != nil {
		if err := w.HeaderTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing header table: %w", err))
		}
	}
	if w.EventTable != nil {
		if err := w.EventTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing event table: %w", err))
		}
	}
	if w.RDGroup != nil {
		if err := w.RDGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing RD group: %w", err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
