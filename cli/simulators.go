package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/ios_sim"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/util"
)

func registerSimulatorsCmd(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "simulators",
		Short: "List, boot and shut down simulators",
	}

	registerSimulatorsListCmd(cmd, a)
	registerSimulatorsBootCmd(cmd, a)
	registerSimulatorsShutdownCmd(cmd, a)

	parent.AddCommand(cmd)
}

func registerSimulatorsListCmd(parent *cobra.Command, a *app) {
	var (
		booted bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available simulators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			simctl := ios_sim.New(a.shell)

			var (
				sims []models.SimctlDevice
				err  error
			)
			if booted {
				sims, err = simctl.GetBootedSims(cmd.Context())
			} else {
				sims, err = simctl.GetAvailableSims(cmd.Context())
			}
			if err != nil {
				return err
			}

			switch output {
			case "json":
				s, err := util.ConvertToJSONString(sims)
				if err != nil {
					return err
				}
				a.printf("%s\n", s)
			case "table":
				w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "UDID\tNAME\tSTATE")
				for _, sim := range sims {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", sim.UDID, sim.Name, sim.State)
				}
				return w.Flush()
			default:
				return fmt.Errorf("unsupported output format `%s`", output)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&booted, "booted", false, "Only list booted simulators")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	parent.AddCommand(cmd)
}

func registerSimulatorsBootCmd(parent *cobra.Command, a *app) {
	var udid string

	cmd := &cobra.Command{
		Use:   "boot [destination]",
		Short: "Boot the simulator matching a destination, or the one given by --udid",
		Example: `  xctest-runner simulators boot "platform=iOS Simulator,OS=14.0,name=iPhone 11"
  xctest-runner simulators boot --udid 5A1D9CA4-0C5B-4F8B-8E50-1E7C5D0B1C11`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			simctl := ios_sim.New(a.shell)

			if udid != "" {
				if err := simctl.BootSim(cmd.Context(), udid); err != nil {
					return err
				}
				a.printf("%s\n", udid)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("provide a destination or --udid")
			}
			dest, err := destination.Parse(args[0])
			if err != nil {
				return err
			}
			booted, found, err := simctl.BootDestination(cmd.Context(), dest)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("Device UDID was not found for destination `%s`", dest)
			}
			a.printf("%s\n", booted)
			return nil
		},
	}

	cmd.Flags().StringVar(&udid, "udid", "", "UDID of the simulator to boot")

	parent.AddCommand(cmd)
}

func registerSimulatorsShutdownCmd(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "shutdown <udid>",
		Short: "Shut down a booted simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ios_sim.New(a.shell).ShutdownSim(cmd.Context(), args[0])
		},
	}

	parent.AddCommand(cmd)
}
