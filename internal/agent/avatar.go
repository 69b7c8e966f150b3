package agent

import (
	"fmt"
	"html"

	"demo-studio/internal/domain"
)

// roleColors maps each participant role to its avatar gradient.
var roleColors = map[domain.Role][2]string{
	domain.RoleCustomer:  {"#1f6feb", "#0d419d"},
	domain.RolePresenter: {"#2ea043", "#0f5323"},
	domain.RoleDisplay:   {"#6e40c9", "#3c1e70"},
}

// avatarHTML renders the static visual identity shown instead of camera
// video: a full-viewport gradient with the participant's initial and name.
func avatarHTML(role domain.Role, displayName string) string {
	colors, ok := roleColors[role]
	if !ok {
		colors = roleColors[domain.RoleDisplay]
	}

	initial := "?"
	if displayName != "" {
		initial = string([]rune(displayName)[0])
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>
  html, body { margin: 0; height: 100%%; }
  body {
    display: flex; flex-direction: column; align-items: center; justify-content: center;
    background: linear-gradient(135deg, %s, %s);
    font-family: -apple-system, "Segoe UI", sans-serif; color: #fff;
  }
  .initial {
    width: 180px; height: 180px; border-radius: 50%%;
    background: rgba(255, 255, 255, 0.18);
    display: flex; align-items: center; justify-content: center;
    font-size: 96px; font-weight: 600;
  }
  .name { margin-top: 24px; font-size: 28px; letter-spacing: 0.5px; }
</style></head>
<body>
  <div class="initial">%s</div>
  <div class="name">%s</div>
</body>
</html>`, colors[0], colors[1], html.EscapeString(initial), html.EscapeString(displayName))
}
