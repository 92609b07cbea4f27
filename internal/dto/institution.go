package dto

// InlineDocument carries document metadata submitted without a physical
// file, or with an externally hosted URL.
type InlineDocument struct {
	Type             string `json:"type" validate:"required"`
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
	URL              string `json:"url"`
}

// RegisterInstitutionRequest is the JSON registration payload. The three
// registration routes (inline, multipart upload, external storage) all
// normalise into this shape before hitting the lifecycle service.
type RegisterInstitutionRequest struct {
	Name               string           `json:"name" validate:"required"`
	Email              string           `json:"email" validate:"required,email"`
	Password           string           `json:"password" validate:"required,min=8"`
	RegistrationNumber string           `json:"registration_number" validate:"required"`
	Category           string           `json:"category" validate:"required"`
	Address            string           `json:"address" validate:"required"`
	Phone              string           `json:"phone" validate:"required"`
	RepName            string           `json:"rep_name" validate:"required"`
	RepEmail           string           `json:"rep_email" validate:"required,email"`
	RepPhone           string           `json:"rep_phone"`
	Documents          []InlineDocument `json:"documents"`
}

// ExternalStorageRequest registers an institution whose documents already
// live in external object storage, keyed by document field name.
type ExternalStorageRequest struct {
	RegisterInstitutionRequest
	DocumentURLs map[string]string `json:"document_urls"`
}

// SetStatusRequest is the admin transition payload.
type SetStatusRequest struct {
	Status   string  `json:"status" validate:"required"`
	Comments *string `json:"comments"`
}

// SuspendRequest is the shorthand suspension payload.
type SuspendRequest struct {
	Comments *string `json:"comments"`
}
