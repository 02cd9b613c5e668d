package handler

import (
	"strings"

	dErrors "tally/pkg/domain-errors"
)

type CreateTenantRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (r *CreateTenantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

type CreateWaiterRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (r *CreateWaiterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

// AddMerchantRequest registers a sub-merchant reference as it appears in
// payment events' channel_ref.
type AddMerchantRequest struct {
	ChannelRef string `json:"channel_ref" validate:"required,max=128"`
	Label      string `json:"label" validate:"max=128"`
}

func (r *AddMerchantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ChannelRef = strings.TrimSpace(r.ChannelRef)
	if r.ChannelRef == "" {
		return dErrors.New(dErrors.CodeValidation, "channel_ref is required")
	}
	r.Label = strings.TrimSpace(r.Label)
	return nil
}
