package db

import (
	"errors"
	"fmt"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/models"
)

const (
	RunsTable = "test_runs"
	LogsTable = "logs"
)

var ErrRunNotFound = errors.New("test run not found")

// Store keeps test run records in RethinkDB
type Store struct {
	session r.QueryExecutor
}

// New connects to RethinkDB at address and makes sure the database and tables exist
func New(address, database string) (*Store, error) {
	session, err := r.Connect(r.ConnectOpts{
		Address:  address,
		Database: database,
	})
	if err != nil {
		return nil, fmt.Errorf("Could not connect to db on `%s` - %w", address, err)
	}

	if err := setup(session, database); err != nil {
		return nil, err
	}
	return &Store{session: session}, nil
}

// NewWithSession wraps an existing session, e.g. a mock in tests
func NewWithSession(session r.QueryExecutor) *Store {
	return &Store{session: session}
}

// Session exposes the query executor for log hooks
func (s *Store) Session() r.QueryExecutor {
	return s.session
}

func setup(session r.QueryExecutor, database string) error {
	var databases []string
	if err := readAll(r.DBList(), session, &databases); err != nil {
		return fmt.Errorf("Could not list databases - %w", err)
	}
	if !contains(databases, database) {
		if err := r.DBCreate(database).Exec(session); err != nil {
			return fmt.Errorf("Could not create database `%s` - %w", database, err)
		}
	}

	var tables []string
	if err := readAll(r.DB(database).TableList(), session, &tables); err != nil {
		return fmt.Errorf("Could not list tables - %w", err)
	}
	for _, table := range []string{RunsTable, LogsTable} {
		if contains(tables, table) {
			continue
		}
		if err := r.DB(database).TableCreate(table).Exec(session); err != nil {
			return fmt.Errorf("Could not create table `%s` - %w", table, err)
		}
	}
	return nil
}

func readAll(term r.Term, session r.QueryExecutor, result interface{}) error {
	cursor, err := term.Run(session)
	if err != nil {
		return err
	}
	defer cursor.Close()
	return cursor.All(result)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// SaveTestRun inserts the run or replaces the stored one with the same ID
func (s *Store) SaveTestRun(run models.TestRun) error {
	err := r.Table(RunsTable).Insert(run, r.InsertOpts{Conflict: "replace"}).Exec(s.session)
	if err != nil {
		logger.RunnerLogger.LogError("save_test_run", fmt.Sprintf("Could not save test run `%s` - %s", run.ID, err))
		return err
	}
	return nil
}

func (s *Store) GetTestRun(id string) (models.TestRun, error) {
	cursor, err := r.Table(RunsTable).Get(id).Run(s.session)
	if err != nil {
		return models.TestRun{}, err
	}
	defer cursor.Close()

	if cursor.IsNil() {
		return models.TestRun{}, ErrRunNotFound
	}

	var run models.TestRun
	if err := cursor.One(&run); err != nil {
		if errors.Is(err, r.ErrEmptyResult) {
			return models.TestRun{}, ErrRunNotFound
		}
		return models.TestRun{}, err
	}
	return run, nil
}

// ListTestRuns returns the latest runs, newest first
func (s *Store) ListTestRuns(limit int) ([]models.TestRun, error) {
	runs := []models.TestRun{}
	err := readAll(r.Table(RunsTable).OrderBy(r.Desc("started_at")).Limit(limit), s.session, &runs)
	if err != nil {
		return nil, err
	}
	return runs, nil
}
