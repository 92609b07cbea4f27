package dto

// RegisterLearnerRequest creates a learner account. Institutions is a list
// of institution names; a pending linkage is created for each name that
// resolves to an ACTIVE institution at signup time.
type RegisterLearnerRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8"`
	Name         string   `json:"name" validate:"required"`
	Surname      string   `json:"surname" validate:"required"`
	Phone        string   `json:"phone"`
	Institutions []string `json:"institutions"`
}
