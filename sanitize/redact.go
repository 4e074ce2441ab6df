package sanitize

import "regexp"

// MaxRedactLength caps input to the redaction pass so a huge error string
// cannot stall logging.
const MaxRedactLength = 1024 * 1024

var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Credential assignments in free text.
	{regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)"password"\s*:\s*"[^"]+"`), `"password":"REDACTED"`},
	{regexp.MustCompile(`(?i)(token|authorization)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]+`), "bearer REDACTED"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)(secret|client[_-]?secret)[\s:=]+[^\s\n]+`), "$1=REDACTED"},

	// Structured JWTs anywhere in the message.
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`), "REDACTED_JWT"},

	// Datastore connection strings.
	{regexp.MustCompile(`(?:mongodb|mysql|postgres|postgresql|redis)://[^\s"']+`), "[CONNECTION_STRING]"},
}

// RedactString removes credentials, tokens, and connection strings from a
// string before it is written to the operational log. The internal log
// keeps full error structure; only secret material is stripped.
func RedactString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > MaxRedactLength {
		s = s[:MaxRedactLength] + "... [truncated]"
	}
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// RedactError is RedactString over an error's message.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
