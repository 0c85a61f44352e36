package api

import "time"

// Role is the capability level the backend assigns to a user profile.
type Role string

const (
	RoleUnauthenticated Role = "unauthenticated"
	RoleMember          Role = "member"
	RoleTrainer         Role = "trainer"
	RoleAdmin           Role = "admin"
)

// ParseRole normalises a backend role string. Unknown values map to member,
// the least privileged authenticated role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleTrainer, RoleMember:
		return Role(s)
	default:
		return RoleMember
	}
}

// User is the server-side profile keyed by email.
type User struct {
	ID       string `json:"_id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// Trainer is a trainer profile or a pending trainer application.
type Trainer struct {
	ID            string   `json:"_id,omitempty"`
	FullName      string   `json:"fullName,omitempty"`
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email"`
	Age           string   `json:"age,omitempty"`
	ProfileImage  string   `json:"profileImage,omitempty"`
	Experience    string   `json:"experience,omitempty"`
	Biography     string   `json:"biography,omitempty"`
	Facebook      string   `json:"facebook,omitempty"`
	Twitter       string   `json:"twitter,omitempty"`
	Instagram     string   `json:"instagram,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	AvailableDays []string `json:"availableDays,omitempty"`
	AvailableTime string   `json:"availableTime,omitempty"`
	Classes       []string `json:"classes,omitempty"`
	Status        string   `json:"status,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
}

// DisplayName prefers the full name given on the application form.
func (t Trainer) DisplayName() string {
	if t.FullName != "" {
		return t.FullName
	}
	return t.Name
}

// TrainerRef is the short trainer form embedded in classes.
type TrainerRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Class is a fitness class offered by the gym.
type Class struct {
	ID           string       `json:"_id,omitempty"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Image        string       `json:"image,omitempty"`
	Trainers     []TrainerRef `json:"trainers,omitempty"`
	BookingCount int          `json:"bookingCount,omitempty"`
}

// VoteDirection is the type of a forum vote.
type VoteDirection string

const (
	Upvote   VoteDirection = "upvote"
	Downvote VoteDirection = "downvote"
)

// Vote is one voter's vote on a forum post.
type Vote struct {
	UserID string        `json:"userId"`
	Type   VoteDirection `json:"type"`
}

// Forum is a community post.
type Forum struct {
	ID          string    `json:"_id,omitempty"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"authorName,omitempty"`
	AuthorEmail string    `json:"authorEmail,omitempty"`
	AuthorImage string    `json:"authorImage,omitempty"`
	AuthorRole  Role      `json:"authorRole,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	Votes       []Vote    `json:"votes,omitempty"`
}

// Review is a member's rating of a booked trainer.
type Review struct {
	ID          string `json:"_id,omitempty"`
	TrainerID   string `json:"trainerId"`
	TrainerName string `json:"trainerName,omitempty"`
	UserEmail   string `json:"userEmail"`
	UserName    string `json:"userName,omitempty"`
	UserPhoto   string `json:"userPhoto,omitempty"`
	Rating      int    `json:"rating"`
	Review      string `json:"review"`
	Date        string `json:"date,omitempty"`
}

// PaymentIntentRequest asks the backend to open a payment intent.
type PaymentIntentRequest struct {
	Price     float64 `json:"price"`
	TrainerID string  `json:"trainerId"`
	SlotID    string  `json:"slotId"`
	Email     string  `json:"email"`
}

// PaymentIntent carries the processor client secret for an open intent.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// Payment is the booking record persisted after a captured charge.
type Payment struct {
	ID            string  `json:"_id,omitempty"`
	TrainerID     string  `json:"trainerId"`
	TrainerName   string  `json:"trainerName,omitempty"`
	SlotID        string  `json:"slotId"`
	SelectedDay   string  `json:"selectedDay,omitempty"`
	SelectedTime  string  `json:"selectedTime,omitempty"`
	PackageName   string  `json:"packageName"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	UserEmail     string  `json:"userEmail"`
	UserName      string  `json:"userName,omitempty"`
}

// Subscriber is a newsletter subscription.
type Subscriber struct {
	ID           string `json:"_id,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SubscribedAt string `json:"subscribedAt,omitempty"`
}

// Slot is a bookable trainer time slot.
type Slot struct {
	ID           string `json:"_id,omitempty"`
	TrainerEmail string `json:"trainerEmail,omitempty"`
	TrainerName  string `json:"trainerName,omitempty"`
	Day          string `json:"day"`
	Time         string `json:"time"`
	ClassName    string `json:"className,omitempty"`
	BookedBy     string `json:"bookedBy,omitempty"`
}

// SlotRequest adds a time to a trainer's schedule on the given days.
type SlotRequest struct {
	Days      []string `json:"selectedDays"`
	Time      string   `json:"slotTime"`
	ClassName string   `json:"className,omitempty"`
}

// DashboardStats feeds the admin balance page.
type DashboardStats struct {
	Bookings []Payment    `json:"bookings"`
	Stats    []Subscriber `json:"stats"`
}

// Feedback is the admin's decision on a trainer application.
type Feedback struct {
	Email    string `json:"email"`
	Status   string `json:"status"`
	Feedback string `json:"feedback,omitempty"`
}
