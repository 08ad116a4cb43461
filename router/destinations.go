package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/xcodebuild"
)

type destinationResponse struct {
	Destination string              `json:"destination"`
	Entries     []destination.Entry `json:"entries"`
}

func newDestinationResponse(d destination.Destination) destinationResponse {
	return destinationResponse{Destination: destination.Encode(d), Entries: d.Entries()}
}

func (s *Server) ParseDestination(c *gin.Context) {
	var opts []destination.Option
	if c.Query("strict") == "true" {
		opts = append(opts, destination.Strict())
	}

	dest, err := destination.Parse(c.Query("destination"), opts...)
	if err != nil {
		var parseErr *destination.ParseError
		if errors.As(err, &parseErr) {
			JSONError(c.Writer, "parse_destination", parseErr.Error(), http.StatusBadRequest)
			return
		}
		JSONError(c.Writer, "parse_destination", err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, newDestinationResponse(dest))
}

// GetDestinations lists the destinations xcodebuild offers for the configured scheme.
// workspace, project and scheme query parameters override the configuration.
func (s *Server) GetDestinations(c *gin.Context) {
	opts := xcodebuild.Options{
		Workspace: queryOr(c, "workspace", s.Config.Workspace),
		Project:   queryOr(c, "project", s.Config.Project),
		Scheme:    queryOr(c, "scheme", s.Config.Scheme),
	}

	destinations, ok, err := s.Destinations.ShowDestinations(c.Request.Context(), opts)
	if err != nil {
		logger.RunnerLogger.LogError("get_destinations", err.Error())
		JSONError(c.Writer, "get_destinations", "Could not get destinations", http.StatusInternalServerError)
		return
	}
	if !ok {
		JSONError(c.Writer, "get_destinations", "xcodebuild printed no destinations", http.StatusNotFound)
		return
	}

	response := make([]destinationResponse, 0, len(destinations))
	for _, d := range destinations {
		response = append(response, newDestinationResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{
		"destinations": response,
	})
}
