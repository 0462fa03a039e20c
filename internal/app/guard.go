package app

import (
	"fmt"
	"time"

	"travel_market/internal/domain"
)

// DefaultEditWindow is how long an author may edit or delete a review.
const DefaultEditWindow = 24 * time.Hour

// errDenied covers both "not the author" and "window expired".
var errDenied = fmt.Errorf("%w: review can no longer be modified by this user", domain.ErrForbidden)

// Guard decides whether a review may be edited or deleted.
// A review is Mutable until Window elapses after CreatedAt, then Locked.
type Guard struct {
	Window             time.Duration
	AllowAdminOverride bool
	Now                func() time.Time
}

func NewGuard(window time.Duration, allowAdminOverride bool) Guard {
	if window <= 0 {
		window = DefaultEditWindow
	}
	return Guard{Window: window, AllowAdminOverride: allowAdminOverride, Now: time.Now}
}

func (g Guard) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g Guard) window() time.Duration {
	if g.Window <= 0 {
		return DefaultEditWindow
	}
	return g.Window
}

// IsEditable reports whether actorID authored the review and the edit
// window is still open. The boundary is inclusive: exactly Window after
// creation is still editable.
func (g Guard) IsEditable(r domain.Review, actorID string) bool {
	if actorID == "" || r.AuthorID != actorID {
		return false
	}
	return g.now().Sub(r.CreatedAt) <= g.window()
}

// CanMutate is IsEditable plus the optional administrator override.
func (g Guard) CanMutate(r domain.Review, a domain.Actor) bool {
	if g.IsEditable(r, a.ID) {
		return true
	}
	return g.AllowAdminOverride && a.IsAdmin()
}

// TimeRemaining renders the rest of the edit window for display only.
func (g Guard) TimeRemaining(createdAt time.Time) string {
	left := createdAt.Add(g.window()).Sub(g.now())
	if left < 0 {
		return "Expired"
	}
	h := int(left / time.Hour)
	m := int((left % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm left", h, m)
}
