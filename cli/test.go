package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/models"
)

var testInputs = []string{
	"workspace",
	"project",
	"scheme",
	"configuration",
	"sdk",
	"arch",
	"destination",
	"code-sign-identity",
	"development-team",
	"result-bundle-path",
	"result-bundle-name",
	"record-video",
}

func registerTestCmd(parent *cobra.Command, a *app) {
	var (
		flags         inputFlags
		bootSimulator bool
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run xcodebuild test",
		Long: `Run xcodebuild test with the configured inputs. The scheme defaults to the first
scheme of the project, the result bundle is archived and uploaded when an object store is configured.
Failing tests are reported but do not fail the command, any other xcodebuild failure does.`,
		Example: `  # Test on a simulator, booting it first
  xctest-runner test --project Demo.xcodeproj --destination "platform=iOS Simulator,OS=14.0,name=iPhone 11" --boot-simulator

  # Inputs can also come from the environment
  INPUT_SCHEME=Demo INPUT_RESULT-BUNDLE-PATH=build/Demo.xcresult xctest-runner test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, &a.cfg)
			if cmd.Flags().Changed("boot-simulator") {
				a.cfg.BootSimulator = bootSimulator
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			tr, _, err := a.newTestRunner(nil)
			if err != nil {
				return err
			}

			run, err := tr.Run(cmd.Context(), a.cfg)
			if err != nil {
				return fmt.Errorf("Testing failed with an unexpected error: %w", err)
			}

			a.printf("Test run %s finished with status %s (exit code %d)\n", run.ID, run.Status, run.ExitCode)
			if run.Status == models.RunStatusFailed {
				a.printf("Some tests failed, see the result bundle for details\n")
			}
			return nil
		},
	}

	flags = registerInputFlags(cmd, testInputs...)
	cmd.Flags().BoolVar(&bootSimulator, "boot-simulator", false, "Boot the destination simulator before testing")

	parent.AddCommand(cmd)
}
