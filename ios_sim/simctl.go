package ios_sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/shell"
)

const SimulatorAppPath = "/Applications/Xcode.app/Contents/Developer/Applications/Simulator.app/"

var ErrMissingDestinationField = errors.New("destination is missing a field required to find a simulator")

// Simctl drives simulators through `xcrun simctl`
type Simctl struct {
	runner shell.Runner
}

func New(runner shell.Runner) *Simctl {
	return &Simctl{runner: runner}
}

func (s *Simctl) XcrunExecGeneric(ctx context.Context, args ...string) ([]byte, error) {
	output, err := s.runner.Output(ctx, "xcrun", args...)
	if err != nil {
		return []byte{}, err
	}
	return output, nil
}

func (s *Simctl) GetSimulatorsData(ctx context.Context) (models.SimctlDevices, error) {
	output, err := s.XcrunExecGeneric(ctx, "simctl", "list", "-j", "-v", "devices")
	if err != nil {
		return models.SimctlDevices{}, fmt.Errorf("Could not list simulators - %w", err)
	}

	var simData models.SimctlDevices
	err = json.Unmarshal(output, &simData)
	if err != nil {
		return models.SimctlDevices{}, fmt.Errorf("Could not unmarshal simulators list - %w", err)
	}
	return simData, nil
}

func (s *Simctl) GetBootedSims(ctx context.Context) ([]models.SimctlDevice, error) {
	simData, err := s.GetSimulatorsData(ctx)
	if err != nil {
		return []models.SimctlDevice{}, err
	}

	var bootedSims []models.SimctlDevice
	for _, device := range simData.SimctlDevice.All() {
		if device.State == models.SimStateBooted {
			bootedSims = append(bootedSims, device)
		}
	}
	return bootedSims, nil
}

func (s *Simctl) GetAvailableSims(ctx context.Context) ([]models.SimctlDevice, error) {
	simData, err := s.GetSimulatorsData(ctx)
	if err != nil {
		return []models.SimctlDevice{}, err
	}

	var availableSims []models.SimctlDevice
	for _, device := range simData.SimctlDevice.All() {
		if device.IsAvailable {
			availableSims = append(availableSims, device)
		}
	}
	return availableSims, nil
}

// ResolveDestination finds the simulator matching the OS and name of a destination.
// An absent simulator is reported through found, a destination without OS or name is an error.
func (s *Simctl) ResolveDestination(ctx context.Context, dest destination.Destination) (udid string, found bool, err error) {
	osVersion, hasOS := dest.Get(destination.KeyOS)
	name, hasName := dest.Get(destination.KeyName)
	if !hasOS || !hasName {
		return "", false, fmt.Errorf("%w: need `OS` and `name` in `%s`", ErrMissingDestinationField, dest)
	}

	simData, err := s.GetSimulatorsData(ctx)
	if err != nil {
		return "", false, err
	}

	udid, found = FindDeviceUDID(simData.SimctlDevice, NormalizeOSVersion(osVersion), name)
	if found {
		logger.RunnerLogger.LogInfo("ios_sim", fmt.Sprintf("Found simulator `%s` for destination `%s`", udid, dest))
	}
	return udid, found, nil
}

// BootSim boots the simulator, a simulator that is already booted is left alone
func (s *Simctl) BootSim(ctx context.Context, udid string) error {
	logger.RunnerLogger.LogInfo("ios_sim", fmt.Sprintf("Booting simulator `%s`", udid))
	availableSims, err := s.GetAvailableSims(ctx)
	if err != nil {
		return err
	}

	known := false
	for _, availableSim := range availableSims {
		if availableSim.UDID != udid {
			continue
		}
		known = true
		if availableSim.State == models.SimStateBooted {
			logger.RunnerLogger.LogInfo("ios_sim", fmt.Sprintf("Simulator `%s` is already booted", udid))
			return nil
		}
	}
	if !known {
		return fmt.Errorf("Simulator `%s` is not available", udid)
	}

	_, err = s.XcrunExecGeneric(ctx, "simctl", "boot", udid)
	if err != nil {
		return fmt.Errorf("Could not boot simulator `%s` - %w", udid, err)
	}
	return nil
}

func (s *Simctl) ShutdownSim(ctx context.Context, udid string) error {
	logger.RunnerLogger.LogInfo("ios_sim", fmt.Sprintf("Shutting down simulator `%s`", udid))
	bootedSims, err := s.GetBootedSims(ctx)
	if err != nil {
		return err
	}

	for _, bootedSim := range bootedSims {
		if bootedSim.UDID == udid {
			_, err = s.XcrunExecGeneric(ctx, "simctl", "shutdown", udid)
			if err != nil {
				return fmt.Errorf("Could not shut down simulator `%s` - %w", udid, err)
			}
			return nil
		}
	}
	logger.RunnerLogger.LogInfo("ios_sim", fmt.Sprintf("Simulator `%s` is not booted", udid))
	return nil
}

// OpenSimulatorApp brings up the Simulator.app window for booted simulators
func (s *Simctl) OpenSimulatorApp(ctx context.Context) error {
	err := s.runner.Run(ctx, shell.Command{Name: "open", Args: []string{SimulatorAppPath}})
	if err != nil {
		return fmt.Errorf("Could not open Simulator.app - %w", err)
	}
	return nil
}

// BootDestination resolves the destination to a simulator, boots it and opens Simulator.app.
// A destination naming an `id` boots that simulator, otherwise OS and name are matched.
// found is false when no simulator matches, nothing is booted in that case.
func (s *Simctl) BootDestination(ctx context.Context, dest destination.Destination) (udid string, found bool, err error) {
	if id, ok := dest.Get(destination.KeyID); ok {
		udid, found, err = s.findAvailable(ctx, id)
	} else {
		udid, found, err = s.ResolveDestination(ctx, dest)
		if errors.Is(err, ErrMissingDestinationField) {
			logger.RunnerLogger.LogWarn("ios_sim", err.Error())
			return "", false, nil
		}
	}
	if err != nil {
		return "", false, err
	}
	if !found {
		logger.RunnerLogger.LogWarn("ios_sim", fmt.Sprintf("Device UDID was not found for destination `%s`", dest))
		return "", false, nil
	}

	if err := s.BootSim(ctx, udid); err != nil {
		return udid, true, err
	}
	if err := s.OpenSimulatorApp(ctx); err != nil {
		return udid, true, err
	}
	return udid, true, nil
}

func (s *Simctl) findAvailable(ctx context.Context, udid string) (string, bool, error) {
	availableSims, err := s.GetAvailableSims(ctx)
	if err != nil {
		return "", false, err
	}
	for _, sim := range availableSims {
		if sim.UDID == udid {
			return udid, true, nil
		}
	}
	return "", false, nil
}
