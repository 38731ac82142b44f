// AngelaMos | 2026
// dto.go

package order

type CheckoutRequest struct {
	GigID        string `json:"gig_id"       validate:"required,uuid"`
	Requirements string `json:"requirements" validate:"max=5000"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=in_progress delivered completed cancelled refunded"`
}

type Wallet struct {
	Totals       Totals        `json:"totals"`
	Transactions []Transaction `json:"transactions"`
}

// ListParams filters order listings. Role narrows to orders where the
// user is the buyer or the seller; empty means either.
type ListParams struct {
	Page     int
	PageSize int
	UserID   string
	Role     string
	Status   Status
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
	if p.Role != "buyer" && p.Role != "seller" {
		p.Role = ""
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
