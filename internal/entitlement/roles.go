// Package entitlement decides what a caller may do, deriving the effective
// role from the live subscription record on every check.
package entitlement

import "github.com/ahmetcoskunkizilkaya/repairscan/internal/models"

var roleLevel = map[models.Role]int{
	models.RoleUser:  1,
	models.RolePro:   2,
	models.RoleAdmin: 3,
}

// AtLeast reports whether role satisfies min under USER < PRO < ADMIN.
// Unknown roles on either side fail closed.
func AtLeast(role, min models.Role) bool {
	have, ok := roleLevel[role]
	if !ok {
		return false
	}
	need, ok := roleLevel[min]
	if !ok {
		return false
	}
	return have >= need
}

// StatusEntitles reports whether a subscription status grants PRO.
func StatusEntitles(status models.SubscriptionStatus) bool {
	return status == models.SubscriptionActive || status == models.SubscriptionTrialing
}
