package gpm

import (
	"fmt"
	"time"
)

const defaultTimeoutInMS = 1000

// RunConfig holds the global parameters of one acquisition run.
type RunConfig struct {
	ResourceName          string
	DriverOptions         string
	NumRecords            int64
	RecordSize            int64
	SampleRate            float64
	TimeoutInMS           int32
	TriggerDelay          float64
	EdgeDetectThreshold   int64
	BaselineCalcFraction  float64
	TriggerSigmaThreshold float64
	Draw                  bool
}

func NewRunConfig() RunConfig {
	return RunConfig{
		TimeoutInMS: defaultTimeoutInMS,
	}
}

func (r *RunConfig) Reset() {
	*r = NewRunConfig()
}

func (r *RunConfig) Missing() []string {
	var missing []string
	if r.ResourceName == "" {
		missing = append(missing, "ResourceName")
	}
	if r.NumRecords <= 0 {
		missing = append(missing, "NumRecords")
	}
	if r.RecordSize <= 0 {
		missing = append(missing, "RecordSize")
	}
	if r.SampleRate <= 0 {
		missing = append(missing, "SampleRate")
	}
	if r.TimeoutInMS <= 0 {
		missing = append(missing, "TimeoutInMS (must be positive)")
	}
	return missing
}

func (r *RunConfig) Complete() bool {
	return len(r.Missing()) == 0
}

func (r *RunConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutInMS) * time.Millisecond
}

// TriggerDelaySeconds converts the configured fraction of the record
// duration into seconds.
func (r *RunConfig) TriggerDelaySeconds() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return r.TriggerDelay * float64(r.RecordSize) / r.SampleRate
}

func (r *RunConfig) Print() {
	module := "config"
	logger.Info(fmt.Sprintf("Resource name: %s", r.ResourceName), module)
	logger.Info(fmt.Sprintf("Driver options: %s", r.DriverOptions), module)
	logger.Info(fmt.Sprintf("Number of records: %d", r.NumRecords), module)
	logger.Info(fmt.Sprintf("Record size: %d", r.RecordSize), module)
	logger.Info(fmt.Sprintf("Sample rate: %g", r.SampleRate), module)
	logger.Info(fmt.Sprintf("Timeout (ms): %d", r.TimeoutInMS), module)
	logger.Info(fmt.Sprintf("Trigger delay: %g", r.TriggerDelay), module)
	logger.Info(fmt.Sprintf("Edge detect threshold: %d", r.EdgeDetectThreshold), module)
	logger.Info(fmt.Sprintf("Baseline calc fraction: %g", r.BaselineCalcFraction), module)
	logger.Info(fmt.Sprintf("Trigger sigma threshold: %g", r.TriggerSigmaThreshold), module)
	logger.Info(fmt.Sprintf("Draw: %t", r.Draw), module)
}
