// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty"   validate:"omitempty,url,max=500"`
	Bio         *string `json:"bio,omitempty"          validate:"omitempty,max=2000"`
	LocationID  *string `json:"location_id,omitempty"  validate:"omitempty,uuid"`
}

type AdminUpdateUserRequest struct {
	UpdateProfileRequest
	IsSeller *bool `json:"is_seller,omitempty"`
}

type AdminCreateUserRequest struct {
	Email       string   `json:"email"        validate:"required,email,max=255"`
	Password    string   `json:"password"     validate:"required,min=8,max=128"`
	DisplayName string   `json:"display_name" validate:"required,min=1,max=100"`
	Roles       []string `json:"roles"        validate:"omitempty,dive,oneof=admin moderator ops_manager ops_agent support user"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio"`
	IsSeller    bool      `json:"is_seller"`
	LocationID  *string   `json:"location_id"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
	IsSeller *bool  `json:"is_seller"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(a *Account) UserResponse {
	roles := []string(a.Roles)
	if roles == nil {
		roles = []string{}
	}

	updated := a.User.UpdatedAt
	if a.Profile.UpdatedAt.After(updated) {
		updated = a.Profile.UpdatedAt
	}

	return UserResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Bio:         a.Bio,
		IsSeller:    a.IsSeller,
		LocationID:  a.LocationID,
		Roles:       roles,
		CreatedAt:   a.User.CreatedAt,
		UpdatedAt:   updated,
	}
}

func ToUserResponseList(accounts []Account) []UserResponse {
	responses := make([]UserResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, ToUserResponse(&accounts[i]))
	}
	return responses
}
