package notify

import (
	"fmt"
	"strings"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
)

const summaryLines = 5

// Summary renders the title and body announcing new alerts. At most five
// alerts are listed.
func Summary(alerts []domain.Alert) (title, text string) {
	title = fmt.Sprintf("📬 Mail Gatekeeper: %d new alert(s)", len(alerts))

	var b strings.Builder
	for i, a := range alerts {
		if i == summaryLines {
			break
		}
		fmt.Fprintf(&b, "• [%s] %s: %s\n", a.Category, SenderName(a.From), a.Subject)
	}
	if len(alerts) > summaryLines {
		fmt.Fprintf(&b, "  ...and %d more\n", len(alerts)-summaryLines)
	}
	return title, strings.TrimRight(b.String(), "\n")
}

// SenderName extracts the display name from "Name <addr>", falling back to
// the whole value.
func SenderName(from string) string {
	if strings.TrimSpace(from) == "" {
		return "(unknown)"
	}
	if lt := strings.Index(from, "<"); lt > 0 {
		return strings.Trim(strings.TrimSpace(from[:lt]), `"`)
	}
	return from
}
