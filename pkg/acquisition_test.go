package gpm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

const (
	testRecordSize = 16
	testMemSize    = 24
	testFirstValid = 4
)

// fakeSession scripts a digitizer. Iterations are counted from 1 on every
// InitiateAcquisition.
type fakeSession struct {
	iteration     int
	closed        int
	armed         bool
	configured    []string
	fetched       []string
	saturate      map[int]uint8
	waitErr       map[int]error
	onWait        func(iteration int)
	configureWarn error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		saturate: make(map[int]uint8),
		waitErr:  make(map[int]error),
	}
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func (f *fakeSession) GetAttributeString(channel string, attr Attribute) (string, error) {
	return "fake", nil
}

func (f *fakeSession) GetAttributeInt32(channel string, attr Attribute) (int32, error) {
	return NumChannels, nil
}

func (f *fakeSession) SetAttributeString(channel string, attr Attribute, value string) error {
	return nil
}

func (f *fakeSession) SetAttributeInt32(channel string, attr Attribute, value int32) error {
	return nil
}

func (f *fakeSession) SetAttributeInt64(channel string, attr Attribute, value int64) error {
	return nil
}

func (f *fakeSession) SetAttributeReal64(channel string, attr Attribute, value float64) error {
	return nil
}

func (f *fakeSession) ConfigureChannel(channel string, rng float64, offset float64, coupling Coupling, enabled bool) error {
	f.configured = append(f.configured, channel)
	return f.configureWarn
}

func (f *fakeSession) ConfigureEdgeTriggerSource(source string, level float64, slope TriggerSlope) error {
	return nil
}

func (f *fakeSession) SelfCalibrate() error {
	return nil
}

func (f *fakeSession) InitiateAcquisition() error {
	f.iteration++
	f.armed = true
	return nil
}

func (f *fakeSession) WaitForAcquisitionComplete(timeout time.Duration) error {
	if !f.armed {
		return DriverError("WaitForAcquisitionComplete", -1, "not armed")
	}
	if f.onWait != nil {
		f.onWait(f.iteration)
	}
	return f.waitErr[f.iteration]
}

func (f *fakeSession) QueryMinWaveformMemory(dataWidth int32, numRecords int64, offsetWithinRecord int64, numPointsPerRecord int64) (int64, error) {
	return testMemSize, nil
}

func (f *fakeSession) FetchWaveformInt8(channel string, data []int8) (WaveformInfo, error) {
	f.fetched = append(f.fetched, channel)
	number, _ := strconv.Atoi(strings.TrimPrefix(channel, "Channel"))
	for i := range data {
		data[i] = int8(f.iteration)
	}
	if f.saturate[f.iteration] == uint8(number) {
		data[testFirstValid+1] = 127
	}
	return WaveformInfo{
		ActualPoints:    testRecordSize,
		FirstValidPoint: testFirstValid,
		XIncrement:      1e-9,
		ScaleFactor:     1.0 / 256,
	}, nil
}

func testParams(t *testing.T, numRecords int64, extra string) *ConfigStore {
	t.Helper()
	input := `global ResourceName PXI0::0::INSTR
global RecordSize 16
global SampleRate 1e9
global NumRecords ` + strconv.FormatInt(numRecords, 10) + `
5 UseChannel true
5 ChannelPolarity 1
5 ChannelRange 1
5 ChannelOffset 0
6 UseChannel true
6 ChannelPolarity 1
6 ChannelRange 1
6 ChannelOffset 0
6 ActiveTrigger true
6 TriggerLevel 0.1
6 TriggerSlope 0
` + extra
	store, err := LoadParameters(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	return store
}

func opener(session *fakeSession, opened *int) OpenFunc {
	return func(resource string, options string) (Session, error) {
		*opened++
		return session, nil
	}
}

func testOptions(dir string) Options {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return Options{
		OutputDir:  dir,
		PrintEvery: 1,
		Now:        func() time.Time { return start },
	}
}

type blockID struct {
	event   int32
	channel uint8
}

func readBlocks(t *testing.T, filename string) []blockID {
	t.Helper()
	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()
	return decodeBlocks(t, file)
}

func decodeBlocks(t *testing.T, r io.Reader) []blockID {
	t.Helper()
	reader := NewRecordReader(r)
	var blocks []blockID
	for {
		header, payload, err := reader.Next()
		if err != nil {
			break
		}
		if len(payload) != testMemSize || header.BufferSize != testMemSize {
			t.Fatalf("unexpected block size %d/%d", len(payload), header.BufferSize)
		}
		blocks = append(blocks, blockID{header.EventNumber, header.ChannelNumber})
	}
	return blocks
}

func equalBlocks(a []blockID, b []blockID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAcquisitionWritesEveryAcceptedRecord(t *testing.T) {
	session := newFakeSession()
	opened := 0
	acq := NewAcquisition(testParams(t, 3, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Iterations != 3 || summary.Accepted != 3 || summary.Blocks != 6 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Bytes != int64(6*(RecordHeaderSize+testMemSize)) {
		t.Fatalf("unexpected byte count %d", summary.Bytes)
	}
	if !strings.HasSuffix(summary.Filename, "GPM_20240102_030405.dat") {
		t.Fatalf("unexpected filename %s", summary.Filename)
	}
	expected := []blockID{{0, 5}, {0, 6}, {1, 5}, {1, 6}, {2, 5}, {2, 6}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
	if opened != 1 || session.closed != 1 {
		t.Fatalf("expected one open and one close, got %d/%d", opened, session.closed)
	}
	if acq.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", acq.State())
	}
	if summary.Status(err) != RunStatusCompleted {
		t.Fatalf("unexpected status %s", summary.Status(err))
	}
}

func TestAcquisitionRejectsSaturatedRecord(t *testing.T) {
	session := newFakeSession()
	session.saturate[2] = 6
	opened := 0
	acq := NewAcquisition(testParams(t, 3, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Iterations != 4 || summary.Accepted != 3 || summary.Saturated != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	// Channel 5 of the rejected iteration is not written either.
	expected := []blockID{{0, 5}, {0, 6}, {2, 5}, {2, 6}, {3, 5}, {3, 6}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
}

func TestAcquisitionStopsFetchingAtSaturatedChannel(t *testing.T) {
	extra := "7 UseChannel true\n7 ChannelPolarity 1\n7 ChannelRange 1\n7 ChannelOffset 0\n"
	session := newFakeSession()
	session.saturate[1] = 6
	opened := 0
	acq := NewAcquisition(testParams(t, 1, extra), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	fetched := []string{"Channel5", "Channel6", "Channel5", "Channel6", "Channel7"}
	if strings.Join(session.fetched, ",") != strings.Join(fetched, ",") {
		t.Fatalf("expected fetches %v, got %v", fetched, session.fetched)
	}
	expected := []blockID{{1, 5}, {1, 6}, {1, 7}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
}

func TestAcquisitionLowChannelsNeverSaturate(t *testing.T) {
	session := newFakeSession()
	session.saturate[1] = 5
	opened := 0
	acq := NewAcquisition(testParams(t, 1, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Iterations != 1 || summary.Accepted != 1 || summary.Saturated != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestAcquisitionInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := newFakeSession()
	session.onWait = func(iteration int) {
		if iteration == 2 {
			cancel()
		}
	}
	opened := 0
	acq := NewAcquisition(testParams(t, 5, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.Interrupted {
		t.Fatalf("expected interrupted run")
	}
	if summary.Iterations != 2 || summary.Accepted != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	expected := []blockID{{0, 5}, {0, 6}, {1, 5}, {1, 6}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
	if session.closed != 1 {
		t.Fatalf("expected session closed once, got %d", session.closed)
	}
	if summary.Status(err) != RunStatusInterrupted {
		t.Fatalf("unexpected status %s", summary.Status(err))
	}
}

func TestAcquisitionTimeoutIsFatal(t *testing.T) {
	session := newFakeSession()
	timeout := DriverError("WaitForAcquisitionComplete", -1074126845, "max time exceeded")
	timeout.Err = ErrAcquisitionTimeout
	session.waitErr[2] = timeout
	opened := 0
	acq := NewAcquisition(testParams(t, 3, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if !errors.Is(err, ErrAcquisitionTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	var status *DriverStatus
	if !errors.As(err, &status) || status.Op != "WaitForAcquisitionComplete" {
		t.Fatalf("expected driver status for the wait, got %v", err)
	}
	if summary.Accepted != 1 || summary.Iterations != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	expected := []blockID{{0, 5}, {0, 6}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
	if session.closed != 1 || acq.State() != StateClosed {
		t.Fatalf("expected session released, closed %d state %v", session.closed, acq.State())
	}
	if summary.Status(err) != RunStatusFailed {
		t.Fatalf("unexpected status %s", summary.Status(err))
	}
}

func TestAcquisitionIncompleteConfigNeverOpensDriver(t *testing.T) {
	store := testParams(t, 3, "7 UseChannel true\n")
	dir := t.TempDir()
	opened := 0
	acq := NewAcquisition(store, opener(newFakeSession(), &opened), testOptions(dir))

	_, err := acq.Run(context.Background())
	var incomplete *ErrConfigIncomplete
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected ErrConfigIncomplete, got %v", err)
	}
	if len(incomplete.Missing) != 3 {
		t.Fatalf("expected 3 missing fields, got %v", incomplete.Missing)
	}
	if opened != 0 {
		t.Fatalf("driver must not be opened")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("no output file expected, found %d entries", len(entries))
	}
}

func TestAcquisitionOpenFailure(t *testing.T) {
	dir := t.TempDir()
	open := func(resource string, options string) (Session, error) {
		return nil, DriverError("InitWithOptions", -1, "no such resource")
	}
	acq := NewAcquisition(testParams(t, 3, ""), open, testOptions(dir))

	summary, err := acq.Run(context.Background())
	var status *DriverStatus
	if !errors.As(err, &status) || !status.Fatal() {
		t.Fatalf("expected fatal driver status, got %v", err)
	}
	if summary.Iterations != 0 || summary.Filename != "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("no output file expected, found %d entries", len(entries))
	}
}

func TestAcquisitionOutputOpenFailureClosesDriver(t *testing.T) {
	session := newFakeSession()
	opened := 0
	opts := testOptions(filepath.Join(t.TempDir(), "missing"))
	acq := NewAcquisition(testParams(t, 3, ""), opener(session, &opened), opts)

	summary, err := acq.Run(context.Background())
	var openErr *ErrOpenFile
	if !errors.As(err, &openErr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected output open error, got %v", err)
	}
	if opened != 1 || session.closed != 1 || acq.State() != StateClosed {
		t.Fatalf("expected driver released, opened %d closed %d state %v", opened, session.closed, acq.State())
	}
	if summary.Iterations != 0 || session.iteration != 0 {
		t.Fatalf("no acquisition expected, summary %+v", summary)
	}
}

var errDiskFull = errors.New("disk full")

// limitedSink accepts whole writes until limit bytes are stored.
type limitedSink struct {
	limit int
	buf   bytes.Buffer
}

func (s *limitedSink) Write(p []byte) (int, error) {
	if s.buf.Len()+len(p) > s.limit {
		return 0, errDiskFull
	}
	return s.buf.Write(p)
}

func TestAcquisitionWriteFailureIsFatal(t *testing.T) {
	session := newFakeSession()
	sink := &limitedSink{limit: 2 * (RecordHeaderSize + testMemSize)}
	opts := testOptions(t.TempDir())
	opts.Output = func(dir string, start time.Time) (*RecordWriter, error) {
		return NewRecordWriter(sink), nil
	}
	opened := 0
	acq := NewAcquisition(testParams(t, 3, ""), opener(session, &opened), opts)

	summary, err := acq.Run(context.Background())
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected write error, got %v", err)
	}
	if summary.Iterations != 2 || summary.Accepted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if session.closed != 1 || acq.State() != StateClosed {
		t.Fatalf("expected session released, closed %d state %v", session.closed, acq.State())
	}
	expected := []blockID{{0, 5}, {0, 6}}
	if got := decodeBlocks(t, bytes.NewReader(sink.buf.Bytes())); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
	if sink.buf.Len() != sink.limit {
		t.Fatalf("partial block left in output, %d bytes", sink.buf.Len())
	}
	if summary.Status(err) != RunStatusFailed {
		t.Fatalf("unexpected status %s", summary.Status(err))
	}
}

func TestAcquisitionWarningsContinue(t *testing.T) {
	session := newFakeSession()
	session.configureWarn = DriverWarning("ConfigureChannel", 0x3FFA4001, "range adjusted")
	opened := 0
	acq := NewAcquisition(testParams(t, 1, ""), opener(session, &opened), testOptions(t.TempDir()))

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("warnings must not stop the run: %v", err)
	}
	if summary.DriverWarnings != 2 || summary.Accepted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

type recordingDisplay struct {
	events   []int
	channels [][]uint8
}

func (d *recordingDisplay) Draw(eventNumber int, waveforms []*Waveform) {
	d.events = append(d.events, eventNumber)
	var channels []uint8
	for _, w := range waveforms {
		channels = append(channels, w.Channel)
	}
	d.channels = append(d.channels, channels)
}

func TestAcquisitionLowChannelsOnlyForDisplay(t *testing.T) {
	extra := "2 UseChannel true\n2 ChannelPolarity -1\n2 ChannelRange 1\n2 ChannelOffset 0\n"

	session := newFakeSession()
	opened := 0
	acq := NewAcquisition(testParams(t, 1, extra), opener(session, &opened), testOptions(t.TempDir()))
	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(session.fetched) != 2 || session.fetched[0] != "Channel5" {
		t.Fatalf("channel 2 must not be fetched without Draw, fetched %v", session.fetched)
	}
	if summary.Blocks != 2 {
		t.Fatalf("expected 2 blocks, got %d", summary.Blocks)
	}

	session = newFakeSession()
	display := &recordingDisplay{}
	opts := testOptions(t.TempDir())
	opts.Display = display
	acq = NewAcquisition(testParams(t, 1, extra+"global Draw true\n"), opener(session, &opened), opts)
	summary, err = acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(session.fetched) != 3 || session.fetched[0] != "Channel2" {
		t.Fatalf("expected channel 2 fetched with Draw, fetched %v", session.fetched)
	}
	expected := []blockID{{0, 5}, {0, 6}}
	if got := readBlocks(t, summary.Filename); !equalBlocks(got, expected) {
		t.Fatalf("expected blocks %v, got %v", expected, got)
	}
	if len(display.events) != 1 || len(display.channels[0]) != 3 {
		t.Fatalf("expected one drawn event with 3 channels, got %v %v", display.events, display.channels)
	}
}

type fakeRunLog struct {
	started []RunEntry
	ended   []string
}

func (l *fakeRunLog) StartRun(entry RunEntry) (int64, error) {
	l.started = append(l.started, entry)
	return 42, nil
}

func (l *fakeRunLog) EndRun(runID int64, summary RunSummary, runErr error) error {
	l.ended = append(l.ended, summary.Status(runErr))
	return nil
}

func TestAcquisitionRecordsRun(t *testing.T) {
	session := newFakeSession()
	runLog := &fakeRunLog{}
	opts := testOptions(t.TempDir())
	opts.RunLog = runLog
	opened := 0
	acq := NewAcquisition(testParams(t, 2, ""), opener(session, &opened), opts)

	summary, err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != 42 {
		t.Fatalf("expected run id 42, got %d", summary.RunID)
	}
	if len(runLog.started) != 1 || runLog.started[0].Filename != summary.Filename {
		t.Fatalf("unexpected run start %+v", runLog.started)
	}
	if len(runLog.ended) != 1 || runLog.ended[0] != RunStatusCompleted {
		t.Fatalf("unexpected run end %v", runLog.ended)
	}
}
