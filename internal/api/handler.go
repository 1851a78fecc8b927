package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"carpark-backend/internal/booking"
	"carpark-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	resolver  *booking.Resolver
	engine    *booking.Engine
	query     *booking.Query
	lifecycle *booking.Lifecycle
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, resolver *booking.Resolver, engine *booking.Engine, query *booking.Query, lifecycle *booking.Lifecycle, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		resolver:  resolver,
		engine:    engine,
		query:     query,
		lifecycle: lifecycle,
		webpush:   webpushOptions,
	}
}
