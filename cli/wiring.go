package cli

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/shamanec/GADS-xctest-runner/artifacts"
	"github.com/shamanec/GADS-xctest-runner/db"
	"github.com/shamanec/GADS-xctest-runner/ios_sim"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/recorder"
	"github.com/shamanec/GADS-xctest-runner/runner"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

// openStore connects to RethinkDB when an address is configured and starts
// storing log entries there as well. store is nil otherwise.
func (a *app) openStore() (*db.Store, error) {
	if a.cfg.RethinkDB.Address == "" {
		return nil, nil
	}
	store, err := db.New(a.cfg.RethinkDB.Address, a.cfg.RethinkDB.Database)
	if err != nil {
		return nil, err
	}
	logger.RunnerLogger.AddHook(logger.NewRethinkDBHook(store.Session(), db.LogsTable, a.cfg.Host, log.InfoLevel))
	return store, nil
}

// newTestRunner wires a TestRunner from the loaded config, output receives the live xcodebuild output
func (a *app) newTestRunner(output io.Writer) (*runner.TestRunner, *db.Store, error) {
	tr := &runner.TestRunner{
		Shell:      a.shell,
		Simulators: ios_sim.New(a.shell),
		Tester:     xcodebuild.New(a.shell),
		Devices:    a.devices,
		Recorder:   recorder.New(a.shell),
		Output:     output,
		Stdout:     a.stdout,
		Stderr:     a.stderr,
		Host:       a.cfg.Host,
	}

	if a.cfg.Artifacts.Enabled() {
		uploader, err := artifacts.NewMinIOUploader(a.cfg.Artifacts)
		if err != nil {
			return nil, nil, err
		}
		tr.Uploader = uploader
	}

	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		tr.Store = store
	}
	return tr, store, nil
}
