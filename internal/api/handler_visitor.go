package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpark-backend/internal/booking"
	"carpark-backend/internal/model"
)

// ListCarParks handles GET /api/visitor/carparks: every enabled sub car park
// with its live free space count. Served through the response cache.
func (h *Handler) ListCarParks(c *gin.Context) {
	carParks, err := h.store.EnabledSubCarParks(c.Request.Context(), time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, carParks)
}

// VisitorCreate handles POST /api/visitor/bookings: the anonymous booking
// path. There is no principal, so the admission runs under the public scope;
// facility existence and enabled status are still enforced by the engine.
func (h *Handler) VisitorCreate(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, booking.Errorf(booking.KindInvalidArgument, "invalid request body: %v", err))
		return
	}

	scope := booking.PublicScope(model.CategoryVisitor)
	record, err := h.engine.Admit(c.Request.Context(), scope, req.toAdmit())
	if err != nil {
		writeError(c, err)
		return
	}

	full, err := h.query.Get(c.Request.Context(), scope, record.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recordView(full))
}
