package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shamanec/GADS-xctest-runner/archive"
	"github.com/shamanec/GADS-xctest-runner/artifacts"
	"github.com/shamanec/GADS-xctest-runner/config"
	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/ios_device"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/shell"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

const (
	PlatformSimulator = "iOS Simulator"
	PlatformDevice    = "iOS"
)

var ErrRunInProgress = errors.New("a test run is already in progress")

type Simulators interface {
	BootDestination(ctx context.Context, dest destination.Destination) (udid string, found bool, err error)
}

type Tester interface {
	DefaultScheme(ctx context.Context, opts xcodebuild.Options) (string, error)
	Test(ctx context.Context, opts xcodebuild.Options, stdout, stderr io.Writer) (xcodebuild.TestResult, error)
}

type Recorder interface {
	Start(ctx context.Context, udid, path string) error
	Stop() (string, error)
}

type RunStore interface {
	SaveTestRun(run models.TestRun) error
}

// TestRunner drives a complete run, from resolving the destination to persisting the record.
// Only one run executes at a time.
type TestRunner struct {
	Shell      shell.Runner
	Simulators Simulators
	Tester     Tester
	Devices    ios_device.Lister
	// Optional collaborators, nil disables the step
	Recorder Recorder
	Uploader artifacts.Uploader
	Store    RunStore
	// Output receives the xcodebuild output next to Stdout
	Output io.Writer
	Stdout io.Writer
	Stderr io.Writer
	Host   string

	mu      sync.Mutex
	busy    bool
	current models.TestRun
}

// NewRun creates the record of a run about to start
func (tr *TestRunner) NewRun(cfg config.Config) models.TestRun {
	return models.TestRun{
		ID:               uuid.NewString(),
		Host:             tr.Host,
		Workspace:        cfg.Workspace,
		Project:          cfg.Project,
		Scheme:           cfg.Scheme,
		Destination:      cfg.Destination,
		Status:           models.RunStatusRunning,
		ResultBundlePath: cfg.ResultBundlePath,
		StartedAt:        time.Now().UTC(),
	}
}

// Current returns the record of the latest run started by this runner
func (tr *TestRunner) Current() (models.TestRun, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.current, tr.current.ID != ""
}

func (tr *TestRunner) Busy() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.busy
}

func (tr *TestRunner) claim(run models.TestRun) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.busy {
		return ErrRunInProgress
	}
	tr.busy = true
	tr.current = run
	return nil
}

func (tr *TestRunner) release(run models.TestRun) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.busy = false
	tr.current = run
}

func (tr *TestRunner) update(run models.TestRun) {
	tr.mu.Lock()
	tr.current = run
	tr.mu.Unlock()
	tr.save(run)
}

// Run executes a test run and waits for it to finish.
// Tests failing is reported through the returned record, not as an error.
func (tr *TestRunner) Run(ctx context.Context, cfg config.Config) (models.TestRun, error) {
	run := tr.NewRun(cfg)
	if err := tr.claim(run); err != nil {
		return run, err
	}
	return tr.execute(ctx, cfg, run)
}

// Start claims the runner and executes the run in the background.
// done is closed once the run finished.
func (tr *TestRunner) Start(ctx context.Context, cfg config.Config) (run models.TestRun, done <-chan struct{}, err error) {
	run = tr.NewRun(cfg)
	if err := tr.claim(run); err != nil {
		return run, nil, err
	}
	tr.save(run)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		tr.execute(ctx, cfg, run)
	}()
	return run, finished, nil
}

func (tr *TestRunner) execute(ctx context.Context, cfg config.Config, run models.TestRun) (models.TestRun, error) {
	run, err := tr.test(ctx, cfg, run)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Status = models.RunStatusErrored
		run.Error = err.Error()
		logger.RunnerLogger.LogError("test_run", fmt.Sprintf("Testing failed with an unexpected error: %s", err))
	}
	tr.save(run)
	tr.release(run)
	return run, err
}

func (tr *TestRunner) test(ctx context.Context, cfg config.Config, run models.TestRun) (models.TestRun, error) {
	dest, err := cfg.ParsedDestination()
	if err != nil {
		return run, err
	}

	opts := xcodebuild.Options{
		Workspace:        cfg.Workspace,
		Project:          cfg.Project,
		Scheme:           cfg.Scheme,
		Configuration:    cfg.Configuration,
		SDK:              cfg.SDK,
		Arch:             cfg.Arch,
		CodeSignIdentity: cfg.CodeSignIdentity,
		DevelopmentTeam:  cfg.DevelopmentTeam,
		ResultBundlePath: cfg.ResultBundlePath,
	}

	if opts.Scheme == "" {
		scheme, err := tr.Tester.DefaultScheme(ctx, opts)
		if err != nil {
			return run, err
		}
		logger.RunnerLogger.LogInfo("test_run", fmt.Sprintf("No scheme given, using `%s`", scheme))
		opts.Scheme = scheme
		run.Scheme = scheme
	}

	dest, simUDID, err := tr.prepareDestination(ctx, cfg, dest)
	if err != nil {
		return run, err
	}
	opts.Destination = dest
	if udid, ok := dest.Get(destination.KeyID); ok {
		run.DeviceUDID = udid
	} else {
		run.DeviceUDID = simUDID
	}
	tr.update(run)

	recording := false
	if cfg.RecordVideo != "" {
		switch {
		case tr.Recorder == nil:
			logger.RunnerLogger.LogWarn("test_run", "Recording requested but no recorder is configured")
		case simUDID == "":
			logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Recording requested but no simulator was booted for destination `%s`, continuing without recording", dest))
		default:
			if err := tr.Recorder.Start(ctx, simUDID, cfg.RecordVideo); err != nil {
				logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Continuing without recording - %s", err))
			} else {
				recording = true
			}
		}
	}

	stdout, stderr := tr.writers()
	result, testErr := tr.Tester.Test(ctx, opts, stdout, stderr)
	run.ExitCode = result.ExitCode

	if recording {
		path, err := tr.Recorder.Stop()
		if err != nil {
			logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Could not stop recording - %s", err))
		} else {
			run.RecordingPath = path
		}
	}

	if testErr != nil {
		return run, testErr
	}
	if result.TestsFailed {
		run.Status = models.RunStatusFailed
	} else {
		run.Status = models.RunStatusPassed
	}

	tr.collectArtifacts(ctx, cfg, &run)
	return run, nil
}

// prepareDestination boots the simulator of a simulator destination when asked to
// and pins physical devices to their UDID
func (tr *TestRunner) prepareDestination(ctx context.Context, cfg config.Config, dest destination.Destination) (destination.Destination, string, error) {
	if dest.IsEmpty() {
		return dest, "", nil
	}

	switch dest.Platform() {
	case PlatformSimulator:
		if !cfg.BootSimulator {
			return dest, "", nil
		}
		udid, found, err := tr.Simulators.BootDestination(ctx, dest)
		if err != nil {
			return dest, "", err
		}
		if !found {
			return dest, "", nil
		}
		return dest, udid, nil
	case PlatformDevice:
		if dest.Has(destination.KeyID) || tr.Devices == nil {
			return dest, "", nil
		}
		udid, found, err := ios_device.ResolveDestination(tr.Devices, dest)
		if err != nil {
			logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Could not list connected devices - %s", err))
			return dest, "", nil
		}
		if !found {
			logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Device UDID was not found for destination `%s`", dest))
			return dest, "", nil
		}
		pinned, err := dest.With(destination.KeyID, udid)
		if err != nil {
			return dest, "", err
		}
		return pinned, "", nil
	}
	return dest, "", nil
}

func (tr *TestRunner) writers() (io.Writer, io.Writer) {
	stdout, stderr := tr.Stdout, tr.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if tr.Output != nil {
		stdout = io.MultiWriter(stdout, tr.Output)
		stderr = io.MultiWriter(stderr, tr.Output)
	}
	return stdout, stderr
}

// collectArtifacts archives the result bundle and uploads it together with the recording.
// Failures here are logged and never fail the run.
func (tr *TestRunner) collectArtifacts(ctx context.Context, cfg config.Config, run *models.TestRun) {
	if cfg.ResultBundlePath == "" {
		return
	}
	if _, err := os.Stat(cfg.ResultBundlePath); err != nil {
		logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Result bundle `%s` was not created", cfg.ResultBundlePath))
		return
	}

	zipPath, err := archive.ResultBundle(ctx, tr.Shell, cfg.ResultBundlePath)
	if err != nil {
		logger.RunnerLogger.LogError("test_run", err.Error())
		return
	}
	run.ResultBundleZip = zipPath

	if tr.Uploader == nil {
		return
	}
	files := []string{zipPath}
	if run.RecordingPath != "" {
		files = append(files, run.RecordingPath)
	}
	name := artifactName(cfg, *run)
	keys, err := tr.Uploader.Upload(ctx, name, files...)
	run.UploadedArtifacts = keys
	if err != nil {
		logger.RunnerLogger.LogError("test_run", fmt.Sprintf("Could not upload artifact `%s` - %s", name, err))
		return
	}
	logger.RunnerLogger.LogInfo("test_run", fmt.Sprintf("Uploaded artifact `%s` with %d files", name, len(keys)))
}

// artifactName is the configured result bundle name, or the bundle folder name when none is set
func artifactName(cfg config.Config, run models.TestRun) string {
	if name := strings.TrimSpace(cfg.ResultBundleName); name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(run.ResultBundlePath), filepath.Ext(run.ResultBundlePath))
}

func (tr *TestRunner) save(run models.TestRun) {
	if tr.Store == nil {
		return
	}
	if err := tr.Store.SaveTestRun(run); err != nil {
		logger.RunnerLogger.LogWarn("test_run", fmt.Sprintf("Could not persist test run `%s` - %s", run.ID, err))
	}
}
