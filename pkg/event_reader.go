package gpm

import (
	"errors"
	"io"
)

type Block struct {
	Header RecordHeader
	Data   []int8
}

// Samples returns the valid part of the block payload.
func (b Block) Samples() []int8 {
	w := Waveform{
		WaveformInfo: WaveformInfo{
			ActualPoints:    b.Header.ActualPoints,
			FirstValidPoint: b.Header.FirstValidPoint,
		},
		Data: b.Data,
	}
	return w.Samples()
}

// Event groups the consecutive blocks written for one accepted record.
type Event struct {
	Number int32
	Blocks []Block
}

func (e *Event) Channels() []uint8 {
	channels := make([]uint8, 0, len(e.Blocks))
	for _, b := range e.Blocks {
		channels = append(channels, b.Header.ChannelNumber)
	}
	return channels
}

// EventReader rebuilds events from a record stream. Blocks of one event are
// contiguous and share the event number.
type EventReader struct {
	records *RecordReader
	pending *Block
	Count   int
}

func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{records: NewRecordReader(r)}
}

// Next returns the next complete event. When the stream ends inside a block
// it returns io.ErrUnexpectedEOF together with the blocks of the unfinished
// event that were read whole, or a nil event if there were none.
func (r *EventReader) Next() (*Event, error) {
	var event *Event
	if r.pending != nil {
		event = &Event{Number: r.pending.Header.EventNumber, Blocks: []Block{*r.pending}}
		r.pending = nil
	}
	for {
		header, payload, err := r.records.Next()
		if err != nil {
			if errors.Is(err, io.EOF) && event != nil {
				r.Count++
				return event, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return event, err
			}
			return nil, err
		}
		block := Block{Header: header, Data: BytesInt8(payload)}
		if event == nil {
			event = &Event{Number: header.EventNumber}
		}
		if header.EventNumber != event.Number {
			r.pending = &block
			r.Count++
			return event, nil
		}
		event.Blocks = append(event.Blocks, block)
	}
}
