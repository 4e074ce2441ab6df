// Package security holds the request-inspection primitives used by the
// sanitization gate: the injection-signature scanner and the probe
// heuristics (scanner user agents, spoofable trust headers).
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dlclark/regexp2"

	"dokq/core"
)

// Finding records one injection-signature match. Findings are telemetry:
// the gate logs and counts them but does not reject the request on their
// own. Blocking on these patterns would break legitimate clinical text
// ("select", "update", quotes in names) with no exploit to stop, since
// no SQL or shell ever sees the raw values.
type Finding struct {
	Location string // e.g. "query.name", "body.notes", "header.Referer"
	Pattern  string // name of the matched signature
}

type signature struct {
	name string
	re   *regexp2.Regexp
}

// Scanner matches untrusted request content against a fixed set of
// injection signatures. Every match runs under a hard timeout so crafted
// input cannot stall the request path.
type Scanner struct {
	signatures []signature
}

// NewScanner compiles the fixed signature set.
func NewScanner() *Scanner {
	patterns := []struct{ name, expr string }{
		{"sql-keywords", `(?i)\b(union|select|insert|delete|drop|update|exec)\b`},
		{"script-injection", `(?i)(<script|javascript:|on\w+\s*=|vbscript:)`},
		{"path-traversal", `(\.\./|\.\.\\)`},
		{"shell-metachars", `(;|&&|\|\|)`},
		{"template-injection", `(\$\{|\{\{|\[\[)`},
	}

	s := &Scanner{}
	for _, p := range patterns {
		re := regexp2.MustCompile(p.expr, regexp2.None)
		re.MatchTimeout = core.ScanMatchTimeout
		s.signatures = append(s.signatures, signature{name: p.name, re: re})
	}
	return s
}

// matchString returns the first signature matching value. A match timeout
// counts as no match: the scanner must never take down the request path.
func (s *Scanner) matchString(value string) (string, bool) {
	for _, sig := range s.signatures {
		ok, err := sig.re.MatchString(value)
		if err != nil {
			continue
		}
		if ok {
			return sig.name, true
		}
	}
	return "", false
}

// ScanValues walks url.Values (query or form data) and reports findings.
func (s *Scanner) ScanValues(prefix string, values url.Values) []Finding {
	var findings []Finding
	for key, vals := range values {
		for _, v := range vals {
			if name, ok := s.matchString(v); ok {
				findings = append(findings, Finding{
					Location: fmt.Sprintf("%s.%s", prefix, key),
					Pattern:  name,
				})
			}
		}
	}
	return findings
}

// ScanBody recursively walks a decoded JSON structure and reports
// findings for every matching string leaf.
func (s *Scanner) ScanBody(body any) []Finding {
	return s.scanValue("body", body)
}

func (s *Scanner) scanValue(path string, value any) []Finding {
	var findings []Finding
	switch v := value.(type) {
	case string:
		if name, ok := s.matchString(v); ok {
			findings = append(findings, Finding{Location: path, Pattern: name})
		}
	case map[string]any:
		for key, val := range v {
			findings = append(findings, s.scanValue(path+"."+key, val)...)
		}
	case []any:
		for i, val := range v {
			findings = append(findings, s.scanValue(fmt.Sprintf("%s[%d]", path, i), val)...)
		}
	}
	return findings
}

// ScanHeaders checks header values against the signature set. Standard
// structured headers whose syntax collides with the signatures are
// skipped.
func (s *Scanner) ScanHeaders(headers http.Header) []Finding {
	var findings []Finding
	for key, vals := range headers {
		switch key {
		case "Cookie", "Authorization", "Accept", "Accept-Encoding", "Accept-Language":
			continue
		}
		for _, v := range vals {
			if name, ok := s.matchString(v); ok {
				findings = append(findings, Finding{Location: "header." + key, Pattern: name})
			}
		}
	}
	return findings
}

// suspiciousAgents are User-Agent substrings of known scanning tools.
// Requests carrying them are rejected outright.
var suspiciousAgents = []string{
	"sqlmap",
	"nikto",
	"nessus",
	"masscan",
	"nmap",
	"scanner",
	"burpsuite",
	"zap",
}

// IsScannerUserAgent reports whether ua matches a known scanner signature
// (case-insensitive substring match).
func IsScannerUserAgent(ua string) bool {
	if ua == "" {
		return false
	}
	lower := strings.ToLower(ua)
	for _, agent := range suspiciousAgents {
		if strings.Contains(lower, agent) {
			return true
		}
	}
	return false
}

// TrustHeaders are client-spoofable headers that, when present and
// disagreeing with the canonical Host, indicate a forged request.
var TrustHeaders = []string{"X-Forwarded-Host", "X-Real-Ip"}

// HasSpoofedTrustHeader reports whether any trust header is present and
// differs from the request's Host.
func HasSpoofedTrustHeader(r *http.Request) bool {
	for _, h := range TrustHeaders {
		if v := r.Header.Get(h); v != "" && v != r.Host {
			return true
		}
	}
	return false
}
