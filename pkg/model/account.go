package model

// Users and dogs live in the client-facing services; bookings only reference them by id.

const (
	RoleOwner  = "owner"
	RoleWalker = "walker"
)

type User struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
	Role  string `json:"role" validate:"required,oneof=owner walker"`
}

type Dog struct {
	ID      string `json:"id" validate:"required"`
	OwnerID string `json:"owner_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=1,max=50"`
	Breed   string `json:"breed" validate:"omitempty,max=50"`
	Age     int    `json:"age" validate:"min=0,max=30"`
}
