package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/util"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

var errNoDestinations = errors.New("xcodebuild printed no destinations")

func registerDestinationsCmd(parent *cobra.Command, a *app) {
	var (
		flags  inputFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "List the destinations xcodebuild offers for the scheme",
		Example: `  xctest-runner destinations --project Demo.xcodeproj --scheme Demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, &a.cfg)

			opts := xcodebuild.Options{
				Workspace: a.cfg.Workspace,
				Project:   a.cfg.Project,
				Scheme:    a.cfg.Scheme,
			}
			destinations, ok, err := xcodebuild.New(a.shell).ShowDestinations(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !ok {
				return errNoDestinations
			}

			switch output {
			case "json":
				entries := make([][]destination.Entry, 0, len(destinations))
				for _, d := range destinations {
					entries = append(entries, d.Entries())
				}
				s, err := util.ConvertToJSONString(entries)
				if err != nil {
					return err
				}
				a.printf("%s\n", s)
			case "flat":
				for _, d := range destinations {
					a.printf("%s\n", destination.Encode(d))
				}
			default:
				return fmt.Errorf("unsupported output format `%s`", output)
			}
			return nil
		},
	}

	flags = registerInputFlags(cmd, "workspace", "project", "scheme")
	cmd.Flags().StringVarP(&output, "output", "o", "flat", "Output format (flat, json)")

	parent.AddCommand(cmd)
}
