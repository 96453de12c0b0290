package model

import "time"

// Plan is a user's subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Role controls access to the admin surface, independent of Plan.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// UserEntitlement is the combined plan, role and usage state for one user.
// Usage counters are only meaningful relative to LastUsageAt's calendar day;
// once the day rolls over they are logically zero until physically reset.
type UserEntitlement struct {
	UserID      string         `db:"user_id" json:"user_id"`
	Plan        Plan           `db:"plan" json:"plan"`
	Role        Role           `db:"role" json:"role"`
	Usage       map[string]int `db:"usage" json:"usage"`
	LastUsageAt time.Time      `db:"last_usage_at" json:"last_usage_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// NewUserEntitlement returns the default record for a user whose entitlement
// document does not exist yet: free plan, standard role, zero usage.
func NewUserEntitlement(userID string, now time.Time) *UserEntitlement {
	return &UserEntitlement{
		UserID:      userID,
		Plan:        PlanFree,
		Role:        RoleStandard,
		Usage:       map[string]int{},
		LastUsageAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// UsageCount returns the counter for a feature key, defaulting to zero for
// keys that have never been recorded.
func (e *UserEntitlement) UsageCount(featureKey string) int {
	if e == nil || e.Usage == nil {
		return 0
	}
	return e.Usage[featureKey]
}

// IsAdmin reports whether the user may invoke admin mutations.
func (e *UserEntitlement) IsAdmin() bool {
	return e != nil && e.Role == RoleAdmin
}
