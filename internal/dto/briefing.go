package dto

// SubmitBriefingRequest is the public intake questionnaire payload.
type SubmitBriefingRequest struct {
	ContactName string  `json:"contact_name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone"`
	Occasion    string  `json:"occasion" validate:"required"`
	Recipient   string  `json:"recipient" validate:"required"`
	Style       string  `json:"style" validate:"required"`
	Mood        string  `json:"mood" validate:"required"`
	Story       string  `json:"story" validate:"required,min=20"`
	PackageTier string  `json:"package_tier" validate:"required,oneof=essential professional premium"`
}

// UpdateBriefingStatusRequest moves a briefing through intake states.
type UpdateBriefingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=received in_review rejected"`
}

// ConvertBriefingRequest turns a briefing into a reviewable project.
type ConvertBriefingRequest struct {
	Title      string `json:"title" validate:"required"`
	ExpiryDays int    `json:"expiry_days" validate:"omitempty,min=1,max=365"`
}
