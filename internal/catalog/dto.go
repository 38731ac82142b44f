// AngelaMos | 2026
// dto.go

package catalog

type CategoryRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=100"`
	Slug        string  `json:"slug"        validate:"required,min=1,max=100"`
	Description string  `json:"description" validate:"max=1000"`
	ParentID    *string `json:"parent_id"   validate:"omitempty,uuid"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

type LocationRequest struct {
	Name        string `json:"name"         validate:"required,min=1,max=100"`
	CountryCode string `json:"country_code" validate:"required,len=2,alpha"`
	Region      string `json:"region"       validate:"max=100"`
	IsActive    *bool  `json:"is_active"`
}
