// AngelaMos | 2026
// dto.go

package moderation

type FlagRequest struct {
	ContentType ContentType `json:"content_type" validate:"required,oneof=gig profile message review"`
	ContentID   string      `json:"content_id"   validate:"required,max=100"`
	Reason      string      `json:"reason"       validate:"required,max=500"`
}

type ReviewRequest struct {
	Status Status `json:"status" validate:"required,oneof=reviewing removed dismissed"`
	Notes  string `json:"notes"  validate:"max=2000"`
	// WarnOwner issues a trust warning to the content owner when the
	// content is removed.
	WarnOwner bool `json:"warn_owner"`
}

type ReviewResult struct {
	Flag        *Flag `json:"flag"`
	OwnerWarned bool  `json:"owner_warned"`
}

type ListParams struct {
	Page        int
	PageSize    int
	Status      Status
	ContentType ContentType
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
