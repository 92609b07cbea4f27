package models

import "time"

// InstitutionStatus is the lifecycle state of a registered institution.
// PENDING is entered only at registration; every other state is reached
// through an admin transition and none of them is terminal.
type InstitutionStatus string

const (
	InstitutionPending   InstitutionStatus = "PENDING"
	InstitutionActive    InstitutionStatus = "ACTIVE"
	InstitutionRejected  InstitutionStatus = "REJECTED"
	InstitutionSuspended InstitutionStatus = "SUSPENDED"
)

// ValidInstitutionStatus reports whether raw names a known lifecycle state.
func ValidInstitutionStatus(raw string) bool {
	switch InstitutionStatus(raw) {
	case InstitutionPending, InstitutionActive, InstitutionRejected, InstitutionSuspended:
		return true
	}
	return false
}

// InstitutionCategory enumerates the recognised institution kinds.
type InstitutionCategory string

const (
	CategoryPublicUniversity  InstitutionCategory = "PUBLIC_UNIVERSITY"
	CategoryPrivateUniversity InstitutionCategory = "PRIVATE_UNIVERSITY"
	CategoryHigherInstitute   InstitutionCategory = "HIGHER_INSTITUTE"
	CategoryTechnicalSchool   InstitutionCategory = "TECHNICAL_SCHOOL"
	CategoryTrainingCenter    InstitutionCategory = "TRAINING_CENTER"
	CategoryOther             InstitutionCategory = "OTHER"
)

// categoryAliases is the single bidirectional mapping between wire labels and
// canonical categories. Every registration path converts through it; the
// canonical value is also its own alias so stored values round-trip.
var categoryAliases = map[string]InstitutionCategory{
	"PUBLIC_UNIVERSITY":   CategoryPublicUniversity,
	"PRIVATE_UNIVERSITY":  CategoryPrivateUniversity,
	"HIGHER_INSTITUTE":    CategoryHigherInstitute,
	"TECHNICAL_SCHOOL":    CategoryTechnicalSchool,
	"TRAINING_CENTER":     CategoryTrainingCenter,
	"OTHER":               CategoryOther,
	"universite_publique": CategoryPublicUniversity,
	"universite_privee":   CategoryPrivateUniversity,
	"institut_superieur":  CategoryHigherInstitute,
	"ecole_technique":     CategoryTechnicalSchool,
	"centre_formation":    CategoryTrainingCenter,
	"autre":               CategoryOther,
}

// ParseCategory resolves a wire label to its canonical category.
func ParseCategory(raw string) (InstitutionCategory, bool) {
	cat, ok := categoryAliases[raw]
	return cat, ok
}

// Institution represents one registered issuing institution.
type Institution struct {
	ID                 string              `db:"id" json:"id"`
	Name               string              `db:"name" json:"name"`
	Email              string              `db:"email" json:"email"`
	PasswordHash       string              `db:"password_hash" json:"-"`
	RegistrationNumber string              `db:"registration_number" json:"registration_number"`
	Category           InstitutionCategory `db:"category" json:"category"`
	Address            string              `db:"address" json:"address"`
	Phone              string              `db:"phone" json:"phone"`
	RepName            string              `db:"rep_name" json:"rep_name"`
	RepEmail           string              `db:"rep_email" json:"rep_email"`
	RepPhone           string              `db:"rep_phone" json:"rep_phone"`
	Status             InstitutionStatus   `db:"status" json:"status"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`

	Documents []Document `db:"-" json:"documents,omitempty"`
}
