package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpark-backend/internal/booking"
	"carpark-backend/internal/model"
	"carpark-backend/internal/mw"
)

// roleCategories is the category matrix per staff role. Patrol officers
// handle visitor bookings and blacklist bans; whitelist permits are managed
// by admins and car-park managers.
var roleCategories = map[string]map[model.Category]bool{
	model.RoleAdmin: {
		model.CategoryVisitor:   true,
		model.CategoryWhitelist: true,
		model.CategoryBlacklist: true,
	},
	model.RoleManager: {
		model.CategoryVisitor:   true,
		model.CategoryWhitelist: true,
		model.CategoryBlacklist: true,
	},
	model.RolePatrol: {
		model.CategoryVisitor:   true,
		model.CategoryBlacklist: true,
	},
}

type createRecordRequest struct {
	SubCarParkID  int64      `json:"subCarParkId" binding:"required"`
	Registration  string     `json:"registration" binding:"required"`
	Email         string     `json:"email"`
	TenancyID     *int64     `json:"tenancyId"`
	WhitelistKind string     `json:"whitelistKind"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
}

func (r *createRecordRequest) toAdmit() booking.AdmitRequest {
	return booking.AdmitRequest{
		SubCarParkID:  r.SubCarParkID,
		Registration:  r.Registration,
		Email:         r.Email,
		TenancyID:     r.TenancyID,
		WhitelistKind: model.WhitelistKind(r.WhitelistKind),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
	}
}

type recordResponse struct {
	ID            int64      `json:"id"`
	Category      string     `json:"category"`
	WhitelistKind string     `json:"whitelistKind,omitempty"`
	Registration  string     `json:"registration"`
	Email         string     `json:"email"`
	TenancyID     *int64     `json:"tenancyId,omitempty"`
	TenancyName   string     `json:"tenancyName,omitempty"`
	SubCarParkID  int64      `json:"subCarParkId"`
	CarParkCode   string     `json:"carParkCode"`
	FacilityName  string     `json:"facilityName,omitempty"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func recordView(r *model.OccupancyRecord) recordResponse {
	view := recordResponse{
		ID:            r.ID,
		Category:      string(r.Category),
		WhitelistKind: string(r.WhitelistKind),
		Registration:  r.Registration,
		Email:         r.Email,
		TenancyID:     r.TenancyID,
		SubCarParkID:  r.SubCarParkID,
		CarParkCode:   r.CarParkCode,
		FacilityName:  r.SubCarPark.Name,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
	}
	if r.Tenancy != nil {
		view.TenancyName = r.Tenancy.Name
	}
	return view
}

// categoryParam parses and authorizes the :category segment for the caller's
// role. A category outside the role's matrix is Forbidden, not NotFound: the
// category exists, the surface just may not touch it.
func categoryParam(c *gin.Context) (model.Category, mw.Principal, bool) {
	principal, ok := mw.PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": "no principal on request"}})
		return "", mw.Principal{}, false
	}

	category, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		writeError(c, booking.Errorf(booking.KindInvalidArgument, "%v", err))
		return "", mw.Principal{}, false
	}

	if !roleCategories[principal.Role][category] {
		writeError(c, booking.Errorf(booking.KindForbidden, "role %s may not operate on %s records", principal.Role, category))
		return "", mw.Principal{}, false
	}
	return category, principal, true
}

// readScope builds the listing scope: patrol officers read across the union
// of their three category assignments, everyone else reads within the single
// category's set.
func (h *Handler) readScope(c *gin.Context, principal mw.Principal, category model.Category) (booking.Scope, bool) {
	var (
		scope booking.Scope
		err   error
	)
	if principal.Role == model.RolePatrol {
		scope, err = booking.PatrolReadScope(c.Request.Context(), h.resolver, principal.StaffID, category)
	} else {
		scope, err = booking.StaffScope(c.Request.Context(), h.resolver, principal.StaffID, category)
	}
	if err != nil {
		writeError(c, err)
		return booking.Scope{}, false
	}
	return scope, true
}

// writeScope builds the mutation scope: always the single category's set.
func (h *Handler) writeScope(c *gin.Context, principal mw.Principal, category model.Category) (booking.Scope, bool) {
	scope, err := booking.StaffScope(c.Request.Context(), h.resolver, principal.StaffID, category)
	if err != nil {
		writeError(c, err)
		return booking.Scope{}, false
	}
	return scope, true
}

// CreateRecord handles POST /{role}/{category}.
func (h *Handler) CreateRecord(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.writeScope(c, principal, category)
	if !ok {
		return
	}

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, booking.Errorf(booking.KindInvalidArgument, "invalid request body: %v", err))
		return
	}

	record, err := h.engine.Admit(c.Request.Context(), scope, req.toAdmit())
	if err != nil {
		writeError(c, err)
		return
	}

	// Re-read with associations so the response carries facility and
	// tenancy names.
	full, err := h.query.Get(c.Request.Context(), scope, record.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recordView(full))
}

// ListRecords handles GET /{role}/{category}.
func (h *Handler) ListRecords(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.readScope(c, principal, category)
	if !ok {
		return
	}

	req, err := parseListRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.query.List(c.Request.Context(), scope, req)
	if err != nil {
		writeError(c, err)
		return
	}

	rows := make([]recordResponse, 0, len(result.Rows))
	for i := range result.Rows {
		rows = append(rows, recordView(&result.Rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "pagination": result.Pagination})
}

// GetRecord handles GET /{role}/{category}/:id.
func (h *Handler) GetRecord(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.readScope(c, principal, category)
	if !ok {
		return
	}
	recordID, ok := idParam(c)
	if !ok {
		return
	}

	record, err := h.query.Get(c.Request.Context(), scope, recordID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordView(record))
}

// CheckoutRecord handles PATCH /{role}/{category}/checkout/:id.
func (h *Handler) CheckoutRecord(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.writeScope(c, principal, category)
	if !ok {
		return
	}
	recordID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.lifecycle.Checkout(c.Request.Context(), scope, recordID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": recordID, "status": string(model.StatusCheckout)})
}

// DeleteRecord handles DELETE /{role}/{category}/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.writeScope(c, principal, category)
	if !ok {
		return
	}
	recordID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.lifecycle.Remove(c.Request.Context(), scope, recordID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportRecords handles GET /{role}/{category}/export and streams the full
// scoped result set as CSV, paging through storage under the hood.
func (h *Handler) ExportRecords(c *gin.Context) {
	category, principal, ok := categoryParam(c)
	if !ok {
		return
	}
	scope, ok := h.readScope(c, principal, category)
	if !ok {
		return
	}

	req, err := parseListRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var rows []model.OccupancyRecord
	req.PageNo = 1
	req.PageSize = 1 << 30 // Clamped to the query's maximum page size.
	for {
		result, err := h.query.List(c.Request.Context(), scope, req)
		if err != nil {
			writeError(c, err)
			return
		}
		rows = append(rows, result.Rows...)
		if req.PageNo >= result.Pagination.TotalPages {
			break
		}
		req.PageNo++
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-records.csv", category))
	c.Status(http.StatusOK)
	if err := booking.ExportCSV(c.Writer, rows); err != nil {
		// Headers are already out; nothing sensible left to send.
		c.Error(err) //nolint:errcheck
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, booking.Errorf(booking.KindInvalidArgument, "invalid record id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func parseListRequest(c *gin.Context) (booking.ListRequest, error) {
	req := booking.ListRequest{
		Search:    c.Query("search"),
		DateField: c.Query("dateField"),
		Status:    model.RecordStatus(c.Query("status")),
		SortField: c.Query("sortField"),
		SortOrder: c.Query("sortOrder"),
	}

	var err error
	if req.PageNo, err = intQuery(c, "pageNo"); err != nil {
		return req, err
	}
	if req.PageSize, err = intQuery(c, "pageSize"); err != nil {
		return req, err
	}

	if v := c.Query("subCarParkId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, booking.Errorf(booking.KindInvalidArgument, "invalid subCarParkId %q", v)
		}
		req.SubCarParkID = &id
	}

	if req.DateFrom, err = timeQuery(c, "dateFrom"); err != nil {
		return req, err
	}
	if req.DateTo, err = timeQuery(c, "dateTo"); err != nil {
		return req, err
	}
	return req, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, booking.Errorf(booking.KindInvalidArgument, "invalid %s %q", key, v)
	}
	return n, nil
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, booking.Errorf(booking.KindInvalidArgument, "invalid %s: use RFC3339", key)
	}
	return &t, nil
}
