package models

// MembershipLevel represents the loyalty tier of a customer
type MembershipLevel string

const (
	Standard MembershipLevel = "STANDARD"
	VIP      MembershipLevel = "VIP"
)

// VIPThreshold is the cumulative order count at which a customer is promoted.
// Promotion is one-directional; the engine never demotes.
const VIPThreshold = 5

// Customer represents a registered customer account
type Customer struct {
	ID              int64           `json:"id" db:"id"`
	LoginID         string          `json:"login_id" db:"login_id"`
	PasswordHash    string          `json:"-" db:"password_hash"`
	MembershipLevel MembershipLevel `json:"membership_level" db:"membership_level"`
	OrderCount      int             `json:"order_count" db:"order_count"`
}

// CustomerSession is the identity handed to the core by the session layer
type CustomerSession struct {
	LoginID         string          `json:"login_id"`
	MembershipLevel MembershipLevel `json:"membership_level"`
	OrderCount      int             `json:"order_count"`
}

// StaffSession is the identity of a logged-in staff member
type StaffSession struct {
	Position string `json:"position"`
}

// ApplyMembershipDiscount applies the loyalty pricing rule to a unit-price sum.
// VIP customers get 10% off, then the result is floored to the nearest
// multiple of 10 (truncating). The two steps are a literal business rule and
// must not be collapsed into a single rounding.
func ApplyMembershipDiscount(total int, level MembershipLevel) int {
	if level != VIP {
		return total
	}
	return total * 9 / 10 / 10 * 10
}
