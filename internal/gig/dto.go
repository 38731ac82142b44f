// AngelaMos | 2026
// dto.go

package gig

type CreateGigRequest struct {
	Title        string  `json:"title"         validate:"required,min=5,max=120"`
	Description  string  `json:"description"   validate:"required,min=20,max=5000"`
	CategoryID   *string `json:"category_id"   validate:"omitempty,uuid"`
	PriceCents   int64   `json:"price_cents"   validate:"required,gt=0,lte=100000000"`
	Currency     string  `json:"currency"      validate:"omitempty,len=3,alpha"`
	DeliveryDays int     `json:"delivery_days" validate:"required,gt=0,lte=365"`
	IsAIAgent    bool    `json:"is_ai_agent"`
	Publish      bool    `json:"publish"`
}

type UpdateGigRequest struct {
	Title        *string `json:"title,omitempty"         validate:"omitempty,min=5,max=120"`
	Description  *string `json:"description,omitempty"   validate:"omitempty,min=20,max=5000"`
	CategoryID   *string `json:"category_id,omitempty"   validate:"omitempty,uuid"`
	PriceCents   *int64  `json:"price_cents,omitempty"   validate:"omitempty,gt=0,lte=100000000"`
	DeliveryDays *int    `json:"delivery_days,omitempty" validate:"omitempty,gt=0,lte=365"`
	IsAIAgent    *bool   `json:"is_ai_agent,omitempty"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=draft active paused archived"`
}

type BrowseParams struct {
	Page       int
	PageSize   int
	Search     string
	CategoryID string
	SellerID   string
	IsAIAgent  *bool
	// Status is only honoured for the seller's own listing.
	Status Status
}

func (p *BrowseParams) Normalize() {
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

func (p *BrowseParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
