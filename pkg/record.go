package gpm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unsafe"
)

// RecordHeader precedes every channel block in the output file. The layout
// is little endian with the padding a C compiler would insert after
// ChannelNumber, 80 bytes in total.
type RecordHeader struct {
	EventNumber          int32
	ChannelNumber        uint8
	_                    [3]byte
	BufferSize           int64
	ActualPoints         int64
	FirstValidPoint      int64
	InitialXOffset       float64
	InitialXTimeSeconds  float64
	InitialXTimeFraction float64
	XIncrement           float64
	ScaleFactor          float64
	ScaleOffset          float64
}

var RecordHeaderSize = binary.Size(RecordHeader{})

func NewRecordHeader(eventNumber int32, w *Waveform) RecordHeader {
	return RecordHeader{
		EventNumber:          eventNumber,
		ChannelNumber:        w.Channel,
		BufferSize:           int64(len(w.Data)),
		ActualPoints:         w.ActualPoints,
		FirstValidPoint:      w.FirstValidPoint,
		InitialXOffset:       w.InitialXOffset,
		InitialXTimeSeconds:  w.InitialXTimeSeconds,
		InitialXTimeFraction: w.InitialXTimeFraction,
		XIncrement:           w.XIncrement,
		ScaleFactor:          w.ScaleFactor,
		ScaleOffset:          w.ScaleOffset,
	}
}

func OutputFilename(start time.Time) string {
	return "GPM_" + start.Format("20060102_150405") + ".dat"
}

// Int8Bytes views the samples as raw bytes without copying.
func Int8Bytes(data []int8) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data))
}

func BytesInt8(data []byte) []int8 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&data[0])), len(data))
}

// RecordWriter appends header/payload blocks to a stream. Each block is
// assembled in memory and handed to the stream in a single write.
type RecordWriter struct {
	Filename string
	Blocks   int
	Bytes    int64
	file     *os.File
	w        *bufio.Writer
	scratch  bytes.Buffer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: bufio.NewWriterSize(w, 1<<20)}
}

// CreateRecordFile creates the output file of a run started at start. An
// existing file is never overwritten.
func CreateRecordFile(dir string, start time.Time) (*RecordWriter, error) {
	filename := filepath.Join(dir, OutputFilename(start))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	writer := NewRecordWriter(file)
	writer.Filename = filename
	writer.file = file
	return writer, nil
}

func (w *RecordWriter) Write(header RecordHeader, payload []byte) error {
	if int64(len(payload)) != header.BufferSize {
		return &ErrWriteRecord{
			EventNumber: header.EventNumber,
			Channel:     header.ChannelNumber,
			Err:         fmt.Errorf("payload is %d bytes, header says %d", len(payload), header.BufferSize),
		}
	}
	w.scratch.Reset()
	w.scratch.Grow(RecordHeaderSize + len(payload))
	if err := binary.Write(&w.scratch, binary.LittleEndian, &header); err != nil {
		return &ErrWriteRecord{EventNumber: header.EventNumber, Channel: header.ChannelNumber, Err: err}
	}
	w.scratch.Write(payload)

	n, err := w.w.Write(w.scratch.Bytes())
	w.Bytes += int64(n)
	if err != nil {
		return &ErrWriteRecord{EventNumber: header.EventNumber, Channel: header.ChannelNumber, Err: err}
	}
	w.Blocks++
	return nil
}

func (w *RecordWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes buffered blocks and closes the file if the writer owns one.
func (w *RecordWriter) Close() error {
	var errs []error
	if err := w.w.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("error flushing %s: %w", w.Filename, err))
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", w.Filename, err))
		}
		w.file = nil
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RecordReader reads back the blocks of an output file. The format has no
// file header or block count, so readers stop at end of stream.
type RecordReader struct {
	r     *bufio.Reader
	Count int
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: bufio.NewReader(r)}
}

// Next returns io.EOF after the last complete block and io.ErrUnexpectedEOF
// when the stream ends inside a block.
func (r *RecordReader) Next() (RecordHeader, []byte, error) {
	var header RecordHeader
	headerBinary := make([]byte, RecordHeaderSize)
	if _, err := io.ReadFull(r.r, headerBinary); err != nil {
		return header, nil, err
	}
	headerReader := bytes.NewReader(headerBinary)
	if err := binary.Read(headerReader, binary.LittleEndian, &header); err != nil {
		return header, nil, err
	}
	if header.BufferSize < 0 {
		return header, nil, fmt.Errorf("block %d has negative buffer size %d", r.Count, header.BufferSize)
	}

	payload := make([]byte, header.BufferSize)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return header, nil, err
	}
	r.Count++
	return header, payload, nil
}
