package models

import (
	"strings"
	"time"
)

// DocumentStatus tracks reviewer validation of an uploaded document.
type DocumentStatus string

const (
	DocumentPending DocumentStatus = "PENDING"
	DocumentValid   DocumentStatus = "VALID"
)

// DocumentType identifies which registration requirement a document covers.
type DocumentType string

const (
	DocCreationDecree         DocumentType = "creation_decree"
	DocOperatingAuthorization DocumentType = "operating_authorization"
	DocRepresentativeID       DocumentType = "representative_id"
	DocAppointmentLetter      DocumentType = "appointment_letter"
	DocLogo                   DocumentType = "logo"
	DocBrochure               DocumentType = "plaquette"
	DocRegistrationNumber     DocumentType = "registration_number_doc"
	DocTaxID                  DocumentType = "tax_id"
	DocMinistryAccreditation  DocumentType = "ministry_accreditation"
	DocRepresentativeMandate  DocumentType = "representative_mandate"
	DocTaxpayerCard           DocumentType = "taxpayer_card"
	DocDGMandate              DocumentType = "dg_mandate"
)

// Document is the metadata row for one submitted registration document. The
// storage locator is either a path relative to the uploads root (physically
// stored, deletable) or a fully-qualified URL (externally owned).
type Document struct {
	ID               string         `db:"id" json:"id"`
	InstitutionID    string         `db:"institution_id" json:"institution_id"`
	Type             DocumentType   `db:"doc_type" json:"type"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	MimeType         string         `db:"mime_type" json:"mime_type"`
	SizeBytes        int64          `db:"size_bytes" json:"size_bytes"`
	StorageLocator   string         `db:"storage_locator" json:"storage_locator"`
	Status           DocumentStatus `db:"status" json:"status"`
	ReviewerComments *string        `db:"reviewer_comments" json:"reviewer_comments,omitempty"`
	UploadedAt       time.Time      `db:"uploaded_at" json:"uploaded_at"`
	ValidatedAt      *time.Time     `db:"validated_at" json:"validated_at,omitempty"`
}

// External reports whether the locator points at externally-owned storage
// that this system must never delete.
func (d Document) External() bool {
	return IsExternalLocator(d.StorageLocator)
}

// IsExternalLocator distinguishes URL locators from filesystem-relative ones.
func IsExternalLocator(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// DocumentSpec lists which document types a category must and may submit.
type DocumentSpec struct {
	Required []DocumentType
	Optional []DocumentType
}

// Teaching institutions, training centers and companies each carry their own
// required set; universities, higher institutes and technical schools all
// follow the teaching-institution spec.
var documentSpecs = map[InstitutionCategory]DocumentSpec{
	CategoryPublicUniversity: {
		Required: []DocumentType{DocCreationDecree, DocOperatingAuthorization, DocRepresentativeID},
		Optional: []DocumentType{DocAppointmentLetter, DocLogo, DocBrochure},
	},
	CategoryPrivateUniversity: {
		Required: []DocumentType{DocCreationDecree, DocOperatingAuthorization, DocRepresentativeID},
		Optional: []DocumentType{DocAppointmentLetter, DocLogo, DocBrochure},
	},
	CategoryHigherInstitute: {
		Required: []DocumentType{DocCreationDecree, DocOperatingAuthorization, DocRepresentativeID},
		Optional: []DocumentType{DocAppointmentLetter, DocLogo, DocBrochure},
	},
	CategoryTechnicalSchool: {
		Required: []DocumentType{DocCreationDecree, DocOperatingAuthorization, DocRepresentativeID},
		Optional: []DocumentType{DocAppointmentLetter, DocLogo, DocBrochure},
	},
	CategoryTrainingCenter: {
		Required: []DocumentType{DocRegistrationNumber, DocTaxID, DocMinistryAccreditation, DocRepresentativeID},
		Optional: []DocumentType{DocRepresentativeMandate, DocLogo, DocBrochure},
	},
	CategoryOther: {
		Required: []DocumentType{DocRegistrationNumber, DocTaxpayerCard, DocRepresentativeID},
		Optional: []DocumentType{DocDGMandate, DocLogo, DocBrochure},
	},
}

// SpecForCategory returns the document requirements for a category.
func SpecForCategory(cat InstitutionCategory) (DocumentSpec, bool) {
	spec, ok := documentSpecs[cat]
	return spec, ok
}

// KnownDocumentType reports whether the field name maps to a document type
// accepted for the category (required or optional).
func KnownDocumentType(cat InstitutionCategory, dt DocumentType) bool {
	spec, ok := documentSpecs[cat]
	if !ok {
		return false
	}
	for _, t := range spec.Required {
		if t == dt {
			return true
		}
	}
	for _, t := range spec.Optional {
		if t == dt {
			return true
		}
	}
	return false
}
