package archive

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/shell"
)

var ErrBundleMissing = errors.New("result bundle does not exist")

// ResultBundle zips the result bundle at bundlePath next to it as `<bundlePath>.zip`
// using ditto, which keeps the extended attributes and the bundle folder itself
func ResultBundle(ctx context.Context, runner shell.Runner, bundlePath string) (string, error) {
	if _, err := os.Stat(bundlePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: `%s`", ErrBundleMissing, bundlePath)
		}
		return "", err
	}

	archivePath := bundlePath + ".zip"
	args := []string{
		"-c",           // create an archive
		"-k",           // PKZip format
		"--keepParent", // embed the bundle folder name
		bundlePath,
		archivePath,
	}

	logger.RunnerLogger.LogInfo("archive_result_bundle", fmt.Sprintf("Archiving `%s` to `%s`", bundlePath, archivePath))
	if err := runner.Run(ctx, shell.Command{Name: "ditto", Args: args}); err != nil {
		return "", fmt.Errorf("Could not archive result bundle `%s` - %w", bundlePath, err)
	}
	return archivePath, nil
}
