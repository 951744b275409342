package user

// UserTypeDeliveryPartner is the profile type the backend uses for couriers.
const UserTypeDeliveryPartner = "DELIVERY_PARTNER"

// User is a backend user profile. Only the fields the client reads are kept.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	UserType string `json:"userType"`
	IsActive bool   `json:"isActive"`
}
