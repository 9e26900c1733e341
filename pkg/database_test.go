package gpm

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sqlx "github.com/jmoiron/sqlx"
)

func newMockRunLog(t *testing.T) (*RunLog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRunLog(sqlx.NewDb(db, "mysql")), mock
}

func TestRunLogStartRun(t *testing.T) {
	runLog, mock := newMockRunLog(t)
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	expectedQuery := regexp.QuoteMeta("INSERT INTO GPMRuns (StartTime, Filename, ResourceName, NumRecords, RecordSize, SampleRate, Status)")
	mock.ExpectExec(expectedQuery).
		WithArgs(start, "GPM_20240102_030405.dat", "PXI0::0::INSTR", int64(3), int64(1000), 1e9, RunStatusRunning).
		WillReturnResult(sqlmock.NewResult(7, 1))

	runID, err := runLog.StartRun(RunEntry{
		StartTime:    start,
		Filename:     "GPM_20240102_030405.dat",
		ResourceName: "PXI0::0::INSTR",
		NumRecords:   3,
		RecordSize:   1000,
		SampleRate:   1e9,
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if runID != 7 {
		t.Fatalf("expected run id 7, got %d", runID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunLogStartRunError(t *testing.T) {
	runLog, mock := newMockRunLog(t)
	mock.ExpectExec("INSERT INTO GPMRuns").WillReturnError(errors.New("table missing"))

	if _, err := runLog.StartRun(RunEntry{Filename: "x.dat"}); err == nil {
		t.Fatalf("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunLogEndRun(t *testing.T) {
	runLog, mock := newMockRunLog(t)
	expectedQuery := regexp.QuoteMeta("UPDATE GPMRuns SET EndTime = ?, Iterations = ?, Accepted = ?, Status = ?, Error = ? WHERE RunID = ?")

	mock.ExpectExec(expectedQuery).
		WithArgs(sqlmock.AnyArg(), int64(4), int64(3), RunStatusInterrupted, "", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	summary := RunSummary{Iterations: 4, Accepted: 3, Interrupted: true}
	if err := runLog.EndRun(7, summary, nil); err != nil {
		t.Fatalf("end run: %v", err)
	}

	runErr := DriverError("WaitForAcquisitionComplete", -1, "max time exceeded")
	mock.ExpectExec(expectedQuery).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(0), RunStatusFailed, runErr.Error(), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := runLog.EndRun(8, RunSummary{Iterations: 1}, runErr); err != nil {
		t.Fatalf("end run: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
