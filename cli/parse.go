package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/util"
)

func registerParseCmd(parent *cobra.Command, a *app) {
	var (
		strict bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "parse <destination>",
		Short: "Validate a destination and print it in xcodebuild form",
		Example: `  xctest-runner parse "{ platform:iOS Simulator, OS:14.0, name:iPhone 11 }"
  xctest-runner parse "platform=iOS,name=QA iPhone" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []destination.Option
			if strict {
				opts = append(opts, destination.Strict())
			}
			dest, err := destination.Parse(args[0], opts...)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				s, err := util.ConvertToJSONString(dest.Entries())
				if err != nil {
					return err
				}
				a.printf("%s\n", s)
			case "flat":
				a.printf("%s\n", destination.Encode(dest))
			default:
				return fmt.Errorf("unsupported output format `%s`", output)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Reject repeated keys instead of keeping the last value")
	cmd.Flags().StringVarP(&output, "output", "o", "flat", "Output format (flat, json)")

	parent.AddCommand(cmd)
}
