package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/shell"
)

const DefaultStartTimeout = 10 * time.Second

var ErrNotRecording = errors.New("recording is not running")

// Recorder captures the screen of a booted simulator into a video file
type Recorder struct {
	runner       shell.Runner
	StartTimeout time.Duration
	Codec        string

	mu      sync.Mutex
	process shell.Process
	path    string
}

func New(runner shell.Runner) *Recorder {
	return &Recorder{runner: runner, StartTimeout: DefaultStartTimeout, Codec: "h264"}
}

// Start begins recording the simulator to path and returns once the video file appears
func (rec *Recorder) Start(ctx context.Context, udid, path string) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.process != nil {
		return fmt.Errorf("already recording to `%s`", rec.path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("Could not create recording folder - %w", err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Could not remove previous recording - %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Could not create file watcher - %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("Could not watch `%s` - %w", dir, err)
	}

	args := []string{"simctl", "io", udid, "recordVideo", "--force"}
	if rec.Codec != "" {
		args = append(args, "--codec="+rec.Codec)
	}
	args = append(args, path)

	process, err := rec.runner.Start(ctx, shell.Command{Name: "xcrun", Args: args})
	if err != nil {
		return fmt.Errorf("Could not start recording simulator `%s` - %w", udid, err)
	}

	if err := waitForFile(ctx, watcher, path, rec.StartTimeout); err != nil {
		process.Signal(os.Interrupt)
		process.Wait()
		return fmt.Errorf("Recording of simulator `%s` did not start - %w", udid, err)
	}

	logger.RunnerLogger.LogInfo("recorder", fmt.Sprintf("Recording simulator `%s` to `%s`", udid, path))
	rec.process = process
	rec.path = path
	return nil
}

// Stop interrupts the recording, which makes simctl finalize the file, and returns its path
func (rec *Recorder) Stop() (string, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.process == nil {
		return "", ErrNotRecording
	}

	process, path := rec.process, rec.path
	rec.process, rec.path = nil, ""

	if err := process.Signal(os.Interrupt); err != nil {
		return path, fmt.Errorf("Could not stop recording - %w", err)
	}
	if err := process.Wait(); err != nil && shell.ExitCode(err) != 0 {
		logger.RunnerLogger.LogWarn("recorder", fmt.Sprintf("Recording process exited with `%s`", err))
	}
	logger.RunnerLogger.LogInfo("recorder", fmt.Sprintf("Saved recording to `%s`", path))
	return path, nil
}

// Recording reports whether a recording is running
func (rec *Recorder) Recording() bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.process != nil
}

func waitForFile(ctx context.Context, watcher *fsnotify.Watcher, path string, timeout time.Duration) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Clean(event.Name) == filepath.Clean(path) && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			return err
		case <-timer.C:
			return fmt.Errorf("`%s` was not created within %s", path, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
