package models

import "time"

// LearnerStatus gates learner authentication.
type LearnerStatus string

const (
	LearnerActive   LearnerStatus = "ACTIVE"
	LearnerInactive LearnerStatus = "INACTIVE"
)

// Learner represents a registered student account.
type Learner struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Name         string        `db:"name" json:"name"`
	Surname      string        `db:"surname" json:"surname"`
	Phone        *string       `db:"phone" json:"phone,omitempty"`
	Status       LearnerStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// LinkageStatus tracks confirmation of a learner-institution relationship.
type LinkageStatus string

const (
	LinkagePending  LinkageStatus = "PENDING"
	LinkageAccepted LinkageStatus = "ACCEPTED"
	LinkageDeclined LinkageStatus = "DECLINED"
)

// Linkage is an unconfirmed learner-to-institution relationship created at
// learner signup. Lookup is by institution name at creation time; when two
// ACTIVE institutions share a name the first match wins.
type Linkage struct {
	ID            string        `db:"id" json:"id"`
	LearnerID     string        `db:"learner_id" json:"learner_id"`
	InstitutionID string        `db:"institution_id" json:"institution_id"`
	Message       string        `db:"message" json:"message"`
	Status        LinkageStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
