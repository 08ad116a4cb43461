package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shamanec/GADS-xctest-runner/config"
	"github.com/shamanec/GADS-xctest-runner/db"
	"github.com/shamanec/GADS-xctest-runner/runner"
)

const defaultRunsLimit = 20

// runRequest overrides the configured inputs for a single run
type runRequest struct {
	Workspace        string `json:"workspace"`
	Project          string `json:"project"`
	Scheme           string `json:"scheme"`
	Configuration    string `json:"configuration"`
	SDK              string `json:"sdk"`
	Arch             string `json:"arch"`
	Destination      string `json:"destination"`
	CodeSignIdentity string `json:"code_sign_identity"`
	DevelopmentTeam  string `json:"development_team"`
	ResultBundlePath string `json:"result_bundle_path"`
	ResultBundleName string `json:"result_bundle_name"`
	BootSimulator    *bool  `json:"boot_simulator"`
	RecordVideo      string `json:"record_video"`
}

func (r runRequest) apply(cfg config.Config) config.Config {
	fields := []struct {
		value string
		field *string
	}{
		{r.Workspace, &cfg.Workspace},
		{r.Project, &cfg.Project},
		{r.Scheme, &cfg.Scheme},
		{r.Configuration, &cfg.Configuration},
		{r.SDK, &cfg.SDK},
		{r.Arch, &cfg.Arch},
		{r.Destination, &cfg.Destination},
		{r.CodeSignIdentity, &cfg.CodeSignIdentity},
		{r.DevelopmentTeam, &cfg.DevelopmentTeam},
		{r.ResultBundlePath, &cfg.ResultBundlePath},
		{r.ResultBundleName, &cfg.ResultBundleName},
		{r.RecordVideo, &cfg.RecordVideo},
	}
	for _, f := range fields {
		if f.value != "" {
			*f.field = f.value
		}
	}
	if r.BootSimulator != nil {
		cfg.BootSimulator = *r.BootSimulator
	}
	return cfg
}

func (s *Server) StartRun(c *gin.Context) {
	var request runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			JSONError(c.Writer, "start_test_run", fmt.Sprintf("Invalid request body - %s", err), http.StatusBadRequest)
			return
		}
	}

	cfg := request.apply(s.Config)
	if err := cfg.Validate(); err != nil {
		JSONError(c.Writer, "start_test_run", err.Error(), http.StatusBadRequest)
		return
	}

	// The run outlives the request
	run, _, err := s.Runner.Start(context.Background(), cfg)
	if err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			JSONError(c.Writer, "start_test_run", err.Error(), http.StatusConflict)
			return
		}
		JSONError(c.Writer, "start_test_run", err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

func (s *Server) GetRun(c *gin.Context) {
	id := c.Param("id")
	if current, ok := s.Runner.Current(); ok && current.ID == id {
		c.JSON(http.StatusOK, current)
		return
	}

	if s.Store == nil {
		JSONError(c.Writer, "get_test_run", fmt.Sprintf("Test run `%s` not found", id), http.StatusNotFound)
		return
	}

	run, err := s.Store.GetTestRun(id)
	if err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			JSONError(c.Writer, "get_test_run", fmt.Sprintf("Test run `%s` not found", id), http.StatusNotFound)
			return
		}
		JSONError(c.Writer, "get_test_run", err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRuns lists the stored runs newest first, or only the latest run when nothing is stored
func (s *Server) GetRuns(c *gin.Context) {
	if s.Store == nil {
		runs := []interface{}{}
		if current, ok := s.Runner.Current(); ok {
			runs = append(runs, current)
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
		return
	}

	limit := defaultRunsLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			JSONError(c.Writer, "get_test_runs", fmt.Sprintf("Invalid limit `%s`", v), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := s.Store.ListTestRuns(limit)
	if err != nil {
		JSONError(c.Writer, "get_test_runs", err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
