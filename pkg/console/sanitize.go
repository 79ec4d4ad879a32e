package console

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	previewPolicyOnce sync.Once
	previewPolicy     *bluemonday.Policy
)

// SanitizePreview strips scripts, event handlers, and remote embeds from a
// generated document while keeping its layout markup and element ids.
func SanitizePreview(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(previewSanitizer().Sanitize(trimmed))
}

func previewSanitizer() *bluemonday.Policy {
	previewPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowStyling()
		policy.AllowAttrs("id").Globally()
		policy.AllowElements("header", "footer", "section", "article", "main", "figure", "figcaption")
		policy.AllowAttrs("data-field", "data-ftype", "aria-hidden", "role").Globally()
		policy.RequireNoFollowOnLinks(true)
		previewPolicy = policy
	})
	return previewPolicy
}
