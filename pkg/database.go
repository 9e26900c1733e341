package gpm

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
	RunStatusFailed      = "failed"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type RunEntry struct {
	RunID        int64     `db:"RunID"`
	StartTime    time.Time `db:"StartTime"`
	Filename     string    `db:"Filename"`
	ResourceName string    `db:"ResourceName"`
	NumRecords   int64     `db:"NumRecords"`
	RecordSize   int64     `db:"RecordSize"`
	SampleRate   float64   `db:"SampleRate"`
	Status       string    `db:"Status"`
}

// RunRecorder keeps track of runs outside the data file.
type RunRecorder interface {
	StartRun(entry RunEntry) (int64, error)
	EndRun(runID int64, summary RunSummary, runErr error) error
}

// RunLog records every acquisition run in the GPMRuns table.
type RunLog struct {
	db *sqlx.DB
}

func NewRunLog(db *sqlx.DB) *RunLog {
	return &RunLog{db: db}
}

func (l *RunLog) StartRun(entry RunEntry) (int64, error) {
	query := `INSERT INTO GPMRuns (StartTime, Filename, ResourceName, NumRecords, RecordSize, SampleRate, Status)
VALUES (:StartTime, :Filename, :ResourceName, :NumRecords, :RecordSize, :SampleRate, :Status)`
	if entry.Status == "" {
		entry.Status = RunStatusRunning
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}
	result, err := l.db.NamedExec(query, entry)
	if err != nil {
		return 0, fmt.Errorf("error inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading run id: %w", err)
	}
	return runID, nil
}

func (l *RunLog) EndRun(runID int64, summary RunSummary, runErr error) error {
	query := "UPDATE GPMRuns SET EndTime = ?, Iterations = ?, Accepted = ?, Status = ?, Error = ? WHERE RunID = ?"
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}
	_, err := l.db.Exec(query, time.Now(), summary.Iterations, summary.Accepted, summary.Status(runErr), errText, runID)
	if err != nil {
		return fmt.Errorf("error updating run %d: %w", runID, err)
	}
	return nil
}
