package api

import "github.com/nekogravitycat/visitor-parking-backend/internal/auth"

// IdentityResponse is the session as the server understands it.
type IdentityResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	BuildingID string `json:"building_id,omitempty"`
	Elevated   bool   `json:"elevated"`
}

func NewIdentityResponse(id auth.Identity) IdentityResponse {
	return IdentityResponse{
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       string(id.Role),
		BuildingID: id.BuildingID,
		Elevated:   id.Role.Elevated(),
	}
}
