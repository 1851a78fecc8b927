package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpark-backend/internal/booking"
)

func statusForKind(kind booking.Kind) int {
	switch kind {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindAlreadyCompleted, booking.KindTimeConflict, booking.KindCapacityExceeded:
		return http.StatusConflict
	case booking.KindFacilityDisabled:
		return http.StatusUnprocessableEntity
	case booking.KindInvalidArgument, booking.KindInvalidInterval, booking.KindDurationExceeded:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders a booking error as its structured envelope. Anything
// that is not a kinded booking error is logged and reported as a generic
// internal error so storage details never leak to callers.
func writeError(c *gin.Context, err error) {
	if kind := booking.KindOf(err); kind != "" {
		c.AbortWithStatusJSON(statusForKind(kind), gin.H{
			"error": gin.H{"code": string(kind), "message": err.Error()},
		})
		return
	}

	log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": "Internal", "message": "internal error"},
	})
}
