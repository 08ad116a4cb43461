package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
)

type bootRequest struct {
	UDID        string `json:"udid"`
	Destination string `json:"destination"`
}

func (s *Server) BootSim(c *gin.Context) {
	var request bootRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		JSONError(c.Writer, "boot_simulator", fmt.Sprintf("Invalid request body - %s", err), http.StatusBadRequest)
		return
	}
	if request.UDID == "" && strings.TrimSpace(request.Destination) == "" {
		JSONError(c.Writer, "boot_simulator", "Provide `udid` or `destination`", http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	bootedSims, err := s.Simulators.GetBootedSims(ctx)
	if err != nil {
		JSONError(c.Writer, "boot_simulator", err.Error(), http.StatusInternalServerError)
		return
	}

	alreadyBooted := false
	for _, sim := range bootedSims {
		if request.UDID != "" && sim.UDID == request.UDID {
			alreadyBooted = true
			break
		}
	}
	if !alreadyBooted && len(bootedSims) >= s.Config.MaxBootedSimulators {
		JSONError(c.Writer, "boot_simulator", "Maximum number of booted simulators reached", http.StatusBadRequest)
		return
	}

	udid := request.UDID
	if udid != "" {
		if err := s.Simulators.BootSim(ctx, udid); err != nil {
			JSONError(c.Writer, "boot_simulator", err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		dest, err := destination.Parse(request.Destination)
		if err != nil {
			JSONError(c.Writer, "boot_simulator", err.Error(), http.StatusBadRequest)
			return
		}
		var found bool
		udid, found, err = s.Simulators.BootDestination(ctx, dest)
		if err != nil {
			logger.RunnerLogger.LogError("boot_simulator", err.Error())
			JSONError(c.Writer, "boot_simulator", err.Error(), http.StatusInternalServerError)
			return
		}
		if !found {
			JSONError(c.Writer, "boot_simulator", fmt.Sprintf("Device UDID was not found for destination `%s`", dest), http.StatusNotFound)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Simulator booted successfully",
		"udid":    udid,
	})
}

func (s *Server) ShutdownSim(c *gin.Context) {
	udid := c.Param("udid")
	err := s.Simulators.ShutdownSim(c.Request.Context(), udid)
	if err != nil {
		JSONError(c.Writer, "shutdown_simulator", err.Error(), http.StatusInternalServerError)
		return
	}
	SimpleJSONResponse(c.Writer, "Simulator shutdown successfully", http.StatusOK)
}

func (s *Server) GetAvailableSims(c *gin.Context) {
	sims, err := s.Simulators.GetAvailableSims(c.Request.Context())
	if err != nil {
		JSONError(c.Writer, "get_available_simulators", err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sims": sims,
	})
}
