package gpm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type State int

const (
	StateConfiguring State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RunSummary is what a finished run reports, whatever made it stop.
type RunSummary struct {
	RunID          int64
	Filename       string
	Iterations     int
	Accepted       int64
	Saturated      int
	Blocks         int
	Bytes          int64
	DriverWarnings int
	Interrupted    bool
}

func (s RunSummary) Status(runErr error) string {
	switch {
	case runErr != nil:
		return RunStatusFailed
	case s.Interrupted:
		return RunStatusInterrupted
	default:
		return RunStatusCompleted
	}
}

type Options struct {
	OutputDir  string
	PrintEvery int
	Display    Display
	Metrics    *Metrics
	RunLog     RunRecorder
	Now        func() time.Time

	// Output opens the record stream of a run. Defaults to CreateRecordFile.
	Output func(dir string, start time.Time) (*RecordWriter, error)
}

// Acquisition drives one run: it configures the digitizer once, then
// acquires, screens and writes records until enough were accepted, the
// context is cancelled or a fatal error happens. The session and the output
// file are released on every exit path.
type Acquisition struct {
	params  *ConfigStore
	open    OpenFunc
	opts    Options
	session Session
	output  *RecordWriter
	state   State
	summary RunSummary
}

func NewAcquisition(params *ConfigStore, open OpenFunc, opts Options) *Acquisition {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Output == nil {
		opts.Output = CreateRecordFile
	}
	return &Acquisition{
		params: params,
		open:   open,
		opts:   opts,
		state:  StateConfiguring,
	}
}

func (a *Acquisition) State() State {
	return a.state
}

func (a *Acquisition) setState(s State) {
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("State %v -> %v", a.state, s)
		logger.Info(message, "acquisition")
	}
	a.state = s
	a.opts.Metrics.setState(s)
}

// Run executes the acquisition. Cancelling ctx stops the run at the next
// iteration boundary; an iteration in progress always completes.
func (a *Acquisition) Run(ctx context.Context) (summary RunSummary, err error) {
	if err := a.params.Validate(); err != nil {
		a.setState(StateClosed)
		return a.summary, err
	}
	a.setState(StateConfiguring)

	defer func() {
		if closeErr := a.close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		a.endRun(err)
		message := fmt.Sprintf("%d events recorded.", a.summary.Iterations)
		logger.Info(message, "acquisition")
		summary = a.summary
	}()

	if err = a.configure(); err != nil {
		return
	}

	start := a.opts.Now()
	a.output, err = a.opts.Output(a.opts.OutputDir, start)
	if err != nil {
		return
	}
	a.summary.Filename = a.output.Filename
	message := fmt.Sprintf("Writing %s, header size is %d bytes long.", a.output.Filename, RecordHeaderSize)
	logger.Info(message, "acquisition")
	a.startRun(start)

	a.setState(StateRunning)
	err = a.loop(ctx)
	return
}

func (a *Acquisition) loop(ctx context.Context) error {
	run := a.params.Run
	channels := a.acquiredChannels()

	for iteration := 0; a.summary.Accepted < run.NumRecords; iteration++ {
		if ctx.Err() != nil {
			a.summary.Interrupted = true
			a.setState(StateDraining)
			logger.Info("Interrupt received, stopping acquisition", "acquisition")
			return nil
		}
		a.summary.Iterations++
		a.opts.Metrics.incIteration()

		if err := a.acquireRecord(int32(iteration), channels); err != nil {
			return err
		}
	}
	return nil
}

// acquiredChannels are the used channels that are fetched every iteration:
// the persisted ones, plus the rest only when they will be drawn.
func (a *Acquisition) acquiredChannels() []ChannelConfig {
	draw := a.params.Run.Draw
	var channels []ChannelConfig
	for _, cp := range a.params.UsedChannels() {
		if !draw && !cp.Persisted() {
			continue
		}
		channels = append(channels, cp)
	}
	return channels
}

func (a *Acquisition) acquireRecord(eventNumber int32, channels []ChannelConfig) error {
	run := a.params.Run
	printProgress := a.opts.PrintEvery > 0 && int(eventNumber)%a.opts.PrintEvery == 0
	var progress strings.Builder
	fmt.Fprintf(&progress, "Event %d -- Init", eventNumber)
	if printProgress {
		defer func() {
			logger.Info(progress.String(), "acquisition")
		}()
	}

	if err := a.check(a.session.InitiateAcquisition(), "InitiateAcquisition"); err != nil {
		return err
	}
	progress.WriteString(", Waiting")
	waitStart := time.Now()
	err := a.session.WaitForAcquisitionComplete(run.Timeout())
	a.opts.Metrics.observeWait(time.Since(waitStart))
	if err := a.check(err, "WaitForAcquisitionComplete"); err != nil {
		return err
	}
	progress.WriteString(", Acquiring")

	waveforms := make([]*Waveform, 0, len(channels))
	for _, cp := range channels {
		w, err := a.fetch(cp)
		if err != nil {
			return err
		}
		if w.Saturated() {
			a.summary.Saturated++
			a.opts.Metrics.incSaturated()
			progress.WriteString(" X")
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Event %d rejected, channel %d saturated", eventNumber, cp.Number)
				logger.Info(message, "acquisition")
			}
			return nil
		}
		waveforms = append(waveforms, w)
	}

	progress.WriteString(", Writing")
	for _, w := range waveforms {
		if w.Channel < PersistChannelMin {
			continue
		}
		before := a.output.Bytes
		err := a.output.Write(NewRecordHeader(eventNumber, w), Int8Bytes(w.Data))
		a.opts.Metrics.addBytes(a.output.Bytes - before)
		if err != nil {
			return err
		}
		fmt.Fprintf(&progress, " %d", w.Channel)
	}
	// Accepted records reach the stream whole before the next acquisition.
	if err := a.output.Flush(); err != nil {
		return fmt.Errorf("error flushing event %d: %w", eventNumber, err)
	}
	a.summary.Blocks = a.output.Blocks
	a.summary.Bytes = a.output.Bytes

	fmt.Fprintf(&progress, ", Finished, %d Recorded", a.summary.Accepted)
	a.summary.Accepted++
	a.opts.Metrics.incAccepted()

	if run.Draw && a.opts.Display != nil {
		a.opts.Display.Draw(int(eventNumber), waveforms)
	}
	return nil
}

func (a *Acquisition) fetch(cp ChannelConfig) (*Waveform, error) {
	run := a.params.Run
	memsize, err := a.session.QueryMinWaveformMemory(waveformDataWidth, recordsPerIteration, 0, run.RecordSize)
	if err := a.check(err, "QueryMinWaveformMemory"); err != nil {
		return nil, err
	}
	if memsize <= 0 {
		return nil, DriverError("QueryMinWaveformMemory", 0, fmt.Sprintf("invalid buffer size %d for %s", memsize, cp.Name()))
	}

	data := make([]int8, memsize)
	info, err := a.session.FetchWaveformInt8(cp.Name(), data)
	if err := a.check(err, "FetchWaveformInt8"); err != nil {
		return nil, err
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("%s: %d points from %d, xinc %g, scale %g offset %g",
			cp.Name(), info.ActualPoints, info.FirstValidPoint, info.XIncrement, info.ScaleFactor, info.ScaleOffset)
		logger.Info(message, "acquisition")
	}
	return &Waveform{
		WaveformInfo: info,
		Channel:      cp.Number,
		Nickname:     cp.Nickname,
		Polarity:     cp.Polarity,
		MemSize:      memsize,
		Data:         data,
	}, nil
}

// check logs driver warnings and turns every other failure into a fatal
// DriverStatus.
func (a *Acquisition) check(err error, op string) error {
	if err == nil {
		return nil
	}
	var status *DriverStatus
	if errors.As(err, &status) {
		if !status.Fatal() {
			message := fmt.Sprintf("** Warning during %s: 0x%08x, %s", op, uint32(status.Code), status.Message)
			logger.Warn(message, "driver")
			a.summary.DriverWarnings++
			a.opts.Metrics.incDriverWarning()
			return nil
		}
		logger.Error(fmt.Sprintf("** Error during %s: 0x%08x, %s", op, uint32(status.Code), status.Message))
		return err
	}
	logger.Error(fmt.Sprintf("** Error during %s: %v", op, err))
	return &DriverStatus{Op: op, Message: err.Error(), Severity: SeverityError, Err: err}
}

func (a *Acquisition) close() error {
	var errs []error
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing driver: %w", err))
		} else {
			logger.Info("Driver closed", "acquisition")
		}
		a.session = nil
	}
	if a.output != nil {
		if err := a.output.Close(); err != nil {
			errs = append(errs, err)
		}
		a.summary.Blocks = a.output.Blocks
		a.summary.Bytes = a.output.Bytes
		a.output = nil
	}
	a.setState(StateClosed)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (a *Acquisition) startRun(start time.Time) {
	if a.opts.RunLog == nil {
		return
	}
	run := a.params.Run
	runID, err := a.opts.RunLog.StartRun(RunEntry{
		StartTime:    start,
		Filename:     a.summary.Filename,
		ResourceName: run.ResourceName,
		NumRecords:   run.NumRecords,
		RecordSize:   run.RecordSize,
		SampleRate:   run.SampleRate,
		Status:       RunStatusRunning,
	})
	if err != nil {
		logger.Error(fmt.Errorf("error recording run start: %w", err).Error())
		return
	}
	a.summary.RunID = runID
}

func (a *Acquisition) endRun(runErr error) {
	if a.opts.RunLog == nil || a.summary.RunID == 0 {
		return
	}
	if err := a.opts.RunLog.EndRun(a.summary.RunID, a.summary, runErr); err != nil {
		logger.Error(fmt.Errorf("error recording run end: %w", err).Error())
	}
}
