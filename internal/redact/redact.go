// Package redact scrubs credentials, tokens, personal data and query text
// from error strings before they are logged.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	TokenPlaceholder      = "[REDACTED_TOKEN]"
	HashPlaceholder       = "[REDACTED_HASH]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// rules apply in order; DSN credentials go before hosts and paths so that a
// connection string collapses into one placeholder.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|pgx|sqlite|file)://[^\s@/]+@`), CredentialPlaceholder},
	{regexp.MustCompile(`(?i)(password|passwd|pwd|secret)([=:\s]+['"]?)[^'"&\s]{3,}`), CredentialPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), TokenPlaceholder},
	{regexp.MustCompile(`\$2[abxy]?\$\d{2}\$[./A-Za-z0-9]{53}`), HashPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), EmailPlaceholder},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[^;]*?\b(FROM|INTO|SET|WHERE)\b[^;:]*`), SQLPlaceholder},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), PathPlaceholder},
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}:\d{1,5}\b`), HostPlaceholder},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	for _, r := range rules {
		input = r.re.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Error is String applied to err.Error(). A nil err yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
