package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamanec/GADS-xctest-runner/config"
	"github.com/shamanec/GADS-xctest-runner/db"
	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/runner"
	"github.com/shamanec/GADS-xctest-runner/shell/shelltest"
	"github.com/shamanec/GADS-xctest-runner/stream"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSimulators struct {
	available []models.SimctlDevice
	booted    []models.SimctlDevice
	bootedIDs []string
	shutdown  []string
	found     bool
}

func (f *fakeSimulators) GetAvailableSims(ctx context.Context) ([]models.SimctlDevice, error) {
	return f.available, nil
}

func (f *fakeSimulators) GetBootedSims(ctx context.Context) ([]models.SimctlDevice, error) {
	return f.booted, nil
}

func (f *fakeSimulators) BootSim(ctx context.Context, udid string) error {
	f.bootedIDs = append(f.bootedIDs, udid)
	return nil
}

func (f *fakeSimulators) ShutdownSim(ctx context.Context, udid string) error {
	f.shutdown = append(f.shutdown, udid)
	return nil
}

func (f *fakeSimulators) BootDestination(ctx context.Context, dest destination.Destination) (string, bool, error) {
	if !f.found {
		return "", false, nil
	}
	f.bootedIDs = append(f.bootedIDs, "SIM-"+dest.Name())
	return "SIM-" + dest.Name(), true, nil
}

type fakeDestinations struct {
	output string
	opts   xcodebuild.Options
}

func (f *fakeDestinations) ShowDestinations(ctx context.Context, opts xcodebuild.Options) ([]destination.Destination, bool, error) {
	f.opts = opts
	dests, ok := destination.ExtractDestinations(f.output, nil)
	return dests, ok, nil
}

type fakeRunner struct {
	mu      sync.Mutex
	started []config.Config
	current models.TestRun
	err     error
}

func (f *fakeRunner) Start(ctx context.Context, cfg config.Config) (models.TestRun, <-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.TestRun{}, nil, f.err
	}
	f.started = append(f.started, cfg)
	f.current = models.TestRun{ID: "run-1", Scheme: cfg.Scheme, Status: models.RunStatusRunning}
	done := make(chan struct{})
	close(done)
	return f.current, done, nil
}

func (f *fakeRunner) Current() (models.TestRun, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.current.ID != ""
}

type fakeStore struct {
	runs []models.TestRun
}

func (f *fakeStore) GetTestRun(id string) (models.TestRun, error) {
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return models.TestRun{}, db.ErrRunNotFound
}

func (f *fakeStore) ListTestRuns(limit int) ([]models.TestRun, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func newServer() (*Server, *fakeSimulators, *fakeRunner) {
	sims := &fakeSimulators{found: true}
	run := &fakeRunner{}
	cfg := config.Default()
	cfg.Project = "Demo.xcodeproj"
	cfg.LogFile = ""
	return &Server{
		Config:       cfg,
		Simulators:   sims,
		Destinations: &fakeDestinations{},
		Runner:       run,
		Output:       stream.NewHub(),
		Shell:        shelltest.NewRunner(),
	}, sims, run
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	HandleRequests(s).ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) JsonErrorResponse {
	var resp JsonErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestParseDestination(t *testing.T) {
	s, _, _ := newServer()

	w := serve(s, http.MethodGet, "/destinations/parse?destination="+
		"%7Bplatform:iOS%20Simulator,%20OS:14.0,%20name:iPhone%2011%7D", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp destinationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "platform=iOS Simulator,OS=14.0,name=iPhone 11", resp.Destination)
	assert.Len(t, resp.Entries, 3)
	assert.Equal(t, destination.KeyPlatform, resp.Entries[0].Key)
}

func TestParseDestination_Invalid(t *testing.T) {
	s, _, _ := newServer()

	w := serve(s, http.MethodGet, "/destinations/parse?destination=foo=bar", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "parse_destination", resp.EventName)
	assert.Equal(t, "invalid destination: unexpected key <foo>", resp.ErrorMessage)

	w = serve(s, http.MethodGet, "/destinations/parse?strict=true&destination=name=a,name=b", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDestinations(t *testing.T) {
	s, _, _ := newServer()
	dests := &fakeDestinations{output: `
	Available destinations for the "Demo" scheme:
		{ platform:iOS Simulator, id:5A1D9CA4-0C5B-4F8B-8E50-1E7C5D0B1C11, OS:14.0, name:iPhone 11 }
		{ platform:iOS Simulator, id:dvtdevice-DVTiOSDeviceSimulatorPlaceholder, name:Any iOS Simulator Device }
`}
	s.Destinations = dests

	w := serve(s, http.MethodGet, "/destinations?scheme=Demo", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Destinations []destinationResponse `json:"destinations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Destinations, 1)
	assert.Equal(t, "platform=iOS Simulator,id=5A1D9CA4-0C5B-4F8B-8E50-1E7C5D0B1C11,OS=14.0,name=iPhone 11", resp.Destinations[0].Destination)
	assert.Equal(t, "Demo", dests.opts.Scheme)
	assert.Equal(t, "Demo.xcodeproj", dests.opts.Project)
}

func TestGetDestinations_NoBlocks(t *testing.T) {
	s, _, _ := newServer()
	s.Destinations = &fakeDestinations{output: "xcodebuild: error: nothing here"}

	w := serve(s, http.MethodGet, "/destinations", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBootSim(t *testing.T) {
	s, sims, _ := newServer()

	w := serve(s, http.MethodPost, "/simulators/boot", `{"destination": "platform=iOS Simulator,OS=14.0,name=iPhone 11"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SIM-iPhone 11")

	w = serve(s, http.MethodPost, "/simulators/boot", `{"udid": "X"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"SIM-iPhone 11", "X"}, sims.bootedIDs)
}

func TestBootSim_Errors(t *testing.T) {
	s, sims, _ := newServer()

	w := serve(s, http.MethodPost, "/simulators/boot", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, http.MethodPost, "/simulators/boot", `{"destination": "{foo:bar}"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sims.found = false
	w = serve(s, http.MethodPost, "/simulators/boot", `{"destination": "OS=99.0,name=Nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w).ErrorMessage, "Device UDID was not found")
}

func TestBootSim_LimitReached(t *testing.T) {
	s, sims, _ := newServer()
	s.Config.MaxBootedSimulators = 2
	sims.booted = []models.SimctlDevice{{UDID: "A"}, {UDID: "B"}}

	w := serve(s, http.MethodPost, "/simulators/boot", `{"udid": "C"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Maximum number of booted simulators reached", decodeError(t, w).ErrorMessage)
	assert.Empty(t, sims.bootedIDs)
}

func TestBootSim_AlreadyBootedAtLimit(t *testing.T) {
	s, sims, _ := newServer()
	s.Config.MaxBootedSimulators = 2
	sims.booted = []models.SimctlDevice{{UDID: "A"}, {UDID: "B"}}

	w := serve(s, http.MethodPost, "/simulators/boot", `{"udid": "B"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"udid":"B"`)
	assert.Equal(t, []string{"B"}, sims.bootedIDs)
}

func TestShutdownSim(t *testing.T) {
	s, sims, _ := newServer()

	w := serve(s, http.MethodPost, "/simulators/X/shutdown", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"X"}, sims.shutdown)
}

func TestGetAvailableSims(t *testing.T) {
	s, sims, _ := newServer()
	sims.available = []models.SimctlDevice{{UDID: "A", Name: "iPhone 11", IsAvailable: true}}

	w := serve(s, http.MethodGet, "/simulators", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"udid":"A"`)
}

func TestStartRun(t *testing.T) {
	s, _, run := newServer()

	w := serve(s, http.MethodPost, "/runs", `{"scheme": "Demo", "boot_simulator": true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, run.started, 1)
	assert.Equal(t, "Demo", run.started[0].Scheme)
	assert.Equal(t, "Demo.xcodeproj", run.started[0].Project)
	assert.True(t, run.started[0].BootSimulator)

	w = serve(s, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	w = serve(s, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"run-1"`)
}

func TestStartRun_WithoutBody(t *testing.T) {
	s, _, run := newServer()

	w := serve(s, http.MethodPost, "/runs", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, run.started, 1)
}

func TestStartRun_Errors(t *testing.T) {
	s, _, run := newServer()

	w := serve(s, http.MethodPost, "/runs", `{"destination": "{foo:bar}"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, http.MethodPost, "/runs", `{"workspace": "Demo.xcworkspace"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	run.err = runner.ErrRunInProgress
	w = serve(s, http.MethodPost, "/runs", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	run.err = errors.New("boom")
	w = serve(s, http.MethodPost, "/runs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRun_FromStore(t *testing.T) {
	s, _, _ := newServer()
	s.Store = &fakeStore{runs: []models.TestRun{
		{ID: "run-2", Status: models.RunStatusPassed},
		{ID: "run-1", Status: models.RunStatusFailed},
	}}

	w := serve(s, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"failed"`)

	w = serve(s, http.MethodGet, "/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(s, http.MethodGet, "/runs?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Runs []models.TestRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "run-2", resp.Runs[0].ID)

	w = serve(s, http.MethodGet, "/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun_NotFoundWithoutStore(t *testing.T) {
	s, _, _ := newServer()

	w := serve(s, http.MethodGet, "/runs/run-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLogs(t *testing.T) {
	s, _, _ := newServer()
	s.Config.LogFile = "./logs/runner.log"
	s.Shell = shelltest.NewRunner().On("tail -n 1000 ./logs/runner.log", shelltest.Response{Stdout: "{\"event\":\"test_run\"}\n"})

	w := serve(s, http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{\"event\":\"test_run\"}\n", w.Body.String())

	s.Shell = shelltest.NewRunner().On("tail -n 1000 ./logs/runner.log", shelltest.Response{Err: shelltest.ExitError{Code: 1}})
	w = serve(s, http.MethodGet, "/logs", "")
	assert.Equal(t, "No logs available.", w.Body.String())
}

func TestRunOutput(t *testing.T) {
	s, _, _ := newServer()
	server := httptest.NewServer(HandleRequests(s))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/runs/output"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Output.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	line := "Test Suite 'All tests' started\n"
	s.Output.Write([]byte(line))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)
	assert.Equal(t, line, string(message))

	s.Output.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
