package domain

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleDonor   Role = "donor"
	RoleSource  Role = "source"
	RoleAdmin   Role = "admin"
)

// User is the minimal account view the allocation engines need: registration,
// profiles and credentials live outside this service.
type User struct {
	ID   string
	Name string
	Role Role
}
