package cache

import "strings"

// Resource names shared by the readers and writers of backend data.
const (
	ResTrainers        = "trainers"
	ResTrainer         = "trainer"
	ResPendingTrainers = "pending-trainers"
	ResClasses         = "classes"
	ResClass           = "class"
	ResForums          = "forums"
	ResForum           = "forum"
	ResReviews         = "reviews"
	ResUser            = "user"
	ResSubscribers     = "subscribers"
	ResSlots           = "slots"
	ResBookedTrainers  = "booked-trainers"
	ResDashboardStats  = "dashboard-stats"
	ResFeedback        = "feedback"
)

// ByEmail keys a per-user resource. Emails are case-insensitive.
func ByEmail(resource, email string) Key {
	return K(resource, strings.ToLower(email))
}
