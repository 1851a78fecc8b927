package booking

import (
	"context"

	"carpark-backend/internal/model"
)

// Scope is the authorization context every core operation runs under: the
// operation's category plus the caller's resolved facility set. It is built
// once per request by the API adapters and passed explicitly, never read
// from ambient state.
type Scope struct {
	Category model.Category

	public  bool
	allowed map[int64]struct{}
}

// StaffScope resolves the staff principal's assignment set for one category.
func StaffScope(ctx context.Context, r *Resolver, staffID int64, category model.Category) (Scope, error) {
	set, err := r.AssignedCarParks(ctx, staffID, category)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Category: category, allowed: set}, nil
}

// PatrolReadScope is the patrol officer's read-only dashboard scope: the
// union of the principal's visitor, whitelist and blacklist assignments,
// listing records of the given category. Patrol mutations must use
// StaffScope so writes stay bound to the single category's set.
func PatrolReadScope(ctx context.Context, r *Resolver, staffID int64, category model.Category) (Scope, error) {
	union := make(map[int64]struct{})
	for _, cat := range []model.Category{model.CategoryVisitor, model.CategoryWhitelist, model.CategoryBlacklist} {
		set, err := r.AssignedCarParks(ctx, staffID, cat)
		if err != nil {
			return Scope{}, err
		}
		for id := range set {
			union[id] = struct{}{}
		}
	}
	return Scope{Category: category, allowed: union}, nil
}

// PublicScope is the anonymous visitor surface: any enabled sub car park
// admits. Existence and enabled status are still verified by the engine.
func PublicScope(category model.Category) Scope {
	return Scope{Category: category, public: true}
}

// Allows reports whether the scope authorizes operating on the sub car park.
func (s Scope) Allows(subCarParkID int64) bool {
	if s.public {
		return true
	}
	_, ok := s.allowed[subCarParkID]
	return ok
}

// Empty reports whether the scope authorizes nothing at all.
func (s Scope) Empty() bool {
	return !s.public && len(s.allowed) == 0
}

// AllowedIDs returns the authorized sub car park IDs, or nil for a public
// scope (which carries no facility restriction).
func (s Scope) AllowedIDs() []int64 {
	if s.public {
		return nil
	}
	ids := make([]int64, 0, len(s.allowed))
	for id := range s.allowed {
		ids = append(ids, id)
	}
	return ids
}
