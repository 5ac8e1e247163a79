package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps boundary sentinels to HTTP statuses. Everything else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, contractx.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, contractx.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

func abortInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg})
}
