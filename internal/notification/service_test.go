// AngelaMos | 2026
// service_test.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type templateRepo struct {
	Repository
	templates map[string]*Template
	err       error
}

func (r *templateRepo) GetActiveTemplateByKey(
	_ context.Context,
	key string,
) (*Template, error) {
	if r.err != nil {
		return nil, r.err
	}
	if t, ok := r.templates[key]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("get notification template: %w", core.ErrNotFound)
}

func TestRender(t *testing.T) {
	got := Render("Hi {{name}}, you have {{count}} warnings {{missing}}", map[string]string{
		"name":  "Sam",
		"count": "2",
	})

	assert.Equal(t, "Hi Sam, you have 2 warnings {{missing}}", got)
	assert.Equal(t, "plain", Render("plain", nil))
}

func TestCompose_UsesTemplate(t *testing.T) {
	repo := &templateRepo{templates: map[string]*Template{
		"trust.warned": {Key: "trust.warned", Title: "Warning", Body: "Reason: {{reason}}"},
	}}

	n, err := Compose(context.Background(), repo, Notice{
		UserID:   "u-1",
		Type:     "trust",
		Template: "trust.warned",
		Vars:     map[string]string{"reason": "spam"},
		Title:    "fallback",
		Message:  "fallback",
	})

	require.NoError(t, err)
	assert.Equal(t, "Warning", n.Title)
	assert.Equal(t, "Reason: spam", n.Message)
	assert.NotEmpty(t, n.ID)
}

func TestCompose_FallsBackWithoutTemplate(t *testing.T) {
	repo := &templateRepo{}

	n, err := Compose(context.Background(), repo, Notice{
		UserID:   "u-1",
		Template: "trust.suspended",
		Vars:     map[string]string{"days": "7"},
		Title:    "Account suspended",
		Message:  "Suspended for {{days}} days",
	})

	require.NoError(t, err)
	assert.Equal(t, "Account suspended", n.Title)
	assert.Equal(t, "Suspended for 7 days", n.Message)
}

func TestCompose_PropagatesLookupFailure(t *testing.T) {
	repo := &templateRepo{err: errors.New("connection reset")}

	_, err := Compose(context.Background(), repo, Notice{Template: "x"})

	assert.Error(t, err)
}

func TestApplyTemplate_RejectsWhitespaceKey(t *testing.T) {
	err := applyTemplate(&Template{}, TemplateRequest{Key: "a b", Title: "t", Body: "b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
