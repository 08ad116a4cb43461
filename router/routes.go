package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shamanec/GADS-xctest-runner/config"
	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/shell"
	"github.com/shamanec/GADS-xctest-runner/stream"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

type JsonErrorResponse struct {
	EventName    string `json:"event"`
	ErrorMessage string `json:"error_message"`
}

type JsonResponse struct {
	Message string `json:"message"`
}

// Write to a ResponseWriter an event and message with a response code
func JSONError(w http.ResponseWriter, event string, error_string string, code int) {
	var errorMessage = JsonErrorResponse{
		EventName:    event,
		ErrorMessage: error_string}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorMessage)
}

// Write to a ResponseWriter a message with a response code
func SimpleJSONResponse(w http.ResponseWriter, responseMessage string, code int) {
	var message = JsonResponse{
		Message: responseMessage,
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(message)
}

type Simulators interface {
	GetAvailableSims(ctx context.Context) ([]models.SimctlDevice, error)
	GetBootedSims(ctx context.Context) ([]models.SimctlDevice, error)
	BootSim(ctx context.Context, udid string) error
	ShutdownSim(ctx context.Context, udid string) error
	BootDestination(ctx context.Context, dest destination.Destination) (udid string, found bool, err error)
}

type DestinationLister interface {
	ShowDestinations(ctx context.Context, opts xcodebuild.Options) ([]destination.Destination, bool, error)
}

type TestRunner interface {
	Start(ctx context.Context, cfg config.Config) (models.TestRun, <-chan struct{}, error)
	Current() (models.TestRun, bool)
}

type RunStore interface {
	GetTestRun(id string) (models.TestRun, error)
	ListTestRuns(limit int) ([]models.TestRun, error)
}

// Server holds what the handlers need, Store is optional
type Server struct {
	Config       config.Config
	Simulators   Simulators
	Destinations DestinationLister
	Runner       TestRunner
	Store        RunStore
	Output       *stream.Hub
	Shell        shell.Runner
}

func HandleRequests(s *Server) *gin.Engine {
	router := gin.Default()
	router.GET("/destinations/parse", s.ParseDestination)
	router.GET("/destinations", s.GetDestinations)
	router.GET("/simulators", s.GetAvailableSims)
	router.POST("/simulators/boot", s.BootSim)
	router.POST("/simulators/:udid/shutdown", s.ShutdownSim)
	router.POST("/runs", s.StartRun)
	router.GET("/runs", s.GetRuns)
	router.GET("/runs/output", s.RunOutput)
	router.GET("/runs/:id", s.GetRun)
	router.GET("/logs", s.GetLogs)
	return router
}

// GetLogs replies with the last 1000 lines of the runner log
func (s *Server) GetLogs(c *gin.Context) {
	if s.Config.LogFile == "" {
		fmt.Fprint(c.Writer, "No logs available.")
		return
	}

	out, err := s.Shell.Output(c.Request.Context(), "tail", "-n", "1000", s.Config.LogFile)
	if err != nil {
		logger.RunnerLogger.LogWarn("get_runner_logs", "Attempted to get runner logs but no logs available.")
		fmt.Fprint(c.Writer, "No logs available.")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", out)
}

func queryOr(c *gin.Context, key, fallback string) string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return v
	}
	return fallback
}
