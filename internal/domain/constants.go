package domain

// Order Statuses
const (
	OrderStatusPending        = "Pending"
	OrderStatusProcessing     = "Processing"
	OrderStatusShipped        = "Shipped"
	OrderStatusOutForDelivery = "Out for Delivery"
	OrderStatusDelivered      = "Delivered"
	OrderStatusCancelled      = "Cancelled"
	OrderStatusReturned       = "Returned"
)

// Discount Types
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Coupon Eligibility Scopes
const (
	ApplicableForAll           = "all"
	ApplicableForLCITStudents  = "lcit-students"
	ApplicableForFirstTime     = "first-time"
	ApplicableForSpecificUsers = "specific-users"
)

// User Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Student Verification Statuses
const (
	StudentVerificationNone     = "none"
	StudentVerificationPending  = "pending"
	StudentVerificationVerified = "verified"
	StudentVerificationRejected = "rejected"
)

// List Exports for API
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

var DiscountTypes = []string{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

var CouponScopes = []string{
	ApplicableForAll,
	ApplicableForLCITStudents,
	ApplicableForFirstTime,
	ApplicableForSpecificUsers,
}

// OrderTransitions is the set of legal status moves. Cancellation of
// Pending/Processing orders goes through the dedicated cancel flow rather
// than a plain status update, but the moves are listed here so the table
// is the single source of truth for the lifecycle.
var OrderTransitions = map[string][]string{
	OrderStatusPending:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {OrderStatusReturned},
	OrderStatusCancelled:      {},
	OrderStatusReturned:       {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range OrderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
