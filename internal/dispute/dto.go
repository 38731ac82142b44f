// AngelaMos | 2026
// dto.go

package dispute

type OpenRequest struct {
	OrderID     string `json:"order_id"    validate:"required,uuid"`
	Reason      string `json:"reason"      validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=under_review closed"`
	// OrderOutcome settles the disputed order. Required when closing a
	// dispute that was never resolved.
	OrderOutcome string `json:"order_outcome" validate:"omitempty,oneof=completed refunded"`
}

type ResolveRequest struct {
	Resolution   string `json:"resolution"    validate:"required,max=5000"`
	OrderOutcome string `json:"order_outcome" validate:"required,oneof=completed refunded"`
}

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
	// PartyID narrows to disputes raised by or against this user.
	PartyID string
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
