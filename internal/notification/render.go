// AngelaMos | 2026
// render.go

package notification

import (
	"strings"
)

// Render substitutes {{name}} placeholders. Unknown placeholders are left
// in place so a missing variable is visible rather than silently blank.
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{{") {
		return text
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}

	return strings.NewReplacer(pairs...).Replace(text)
}
