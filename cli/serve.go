package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/ios_sim"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/router"
	"github.com/shamanec/GADS-xctest-runner/stream"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

const shutdownTimeout = 10 * time.Second

func registerServeCmd(parent *cobra.Command, a *app) {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for simulators and test runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, &a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			hub := stream.NewHub()
			defer hub.Close()

			tr, store, err := a.newTestRunner(hub)
			if err != nil {
				return err
			}

			server := &router.Server{
				Config:       a.cfg,
				Simulators:   ios_sim.New(a.shell),
				Destinations: xcodebuild.New(a.shell),
				Runner:       tr,
				Output:       hub,
				Shell:        a.shell,
			}
			if store != nil {
				server.Store = store
			}

			return listen(cmd.Context(), ":"+a.cfg.Port, router.HandleRequests(server))
		},
	}

	flags = registerInputFlags(cmd, testInputs...)
	flags["port"] = cmd.Flags().String("port", "", "Port to listen on")

	parent.AddCommand(cmd)
}

// listen serves handler until ctx is done
func listen(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errs := make(chan error, 1)
	go func() {
		logger.RunnerLogger.LogInfo("serve", fmt.Sprintf("Starting runner on %s", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
