package types

import (
	"github.com/go-playground/validator/v10"
)

// GenerateRequest is the job submission payload for a landing page run.
type GenerateRequest struct {
	URL                 string `json:"url" validate:"required,min=5,max=500,url"`
	CampaignDescription string `json:"campaignDescription" validate:"required,min=20,max=1000"`
	ImageURL            string `json:"imageUrl,omitempty" validate:"omitempty,max=500,url"`
	UserID              string `json:"userId,omitempty"`
}

// Validate validates the GenerateRequest using the validator.
func (r *GenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
