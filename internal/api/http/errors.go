package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	termprovider "github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
)

const (
	kindInvalidArgument = "invalid_argument"
	kindUnknownTool     = "unknown_tool"
	kindInternal        = "internal"
)

// StatusFor maps an error to its HTTP status and a stable kind string.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, terminal.ErrNotFound):
		return http.StatusNotFound, string(terminal.KindNotFound)
	case errors.Is(err, terminal.ErrInvalidGeometry):
		return http.StatusBadRequest, string(terminal.KindInvalidGeometry)
	case errors.Is(err, termprovider.ErrInvalidArgument):
		return http.StatusBadRequest, kindInvalidArgument
	case errors.Is(err, service.ErrUnknownTool):
		return http.StatusNotFound, kindUnknownTool
	case errors.Is(err, terminal.ErrAlreadyTerminated):
		return http.StatusConflict, string(terminal.KindAlreadyTerminated)
	case errors.Is(err, terminal.ErrSpawnFailure):
		return http.StatusInternalServerError, string(terminal.KindSpawnFailure)
	case errors.Is(err, terminal.ErrIOFailure):
		return http.StatusBadGateway, string(terminal.KindIOFailure)
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// abortWithError writes the error body and records err on the context.
func abortWithError(c *gin.Context, err error) {
	status, kind := StatusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind,
	})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"kind":  kindInvalidArgument,
	})
}
