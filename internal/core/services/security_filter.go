package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

type piiPattern struct {
	kind domain.PIIKind
	re   *regexp.Regexp
}

// piiPatterns is evaluated in order. Sanitisation depends on the order:
// card numbers are redacted before their digit groups can match shorter kinds.
var piiPatterns = []piiPattern{
	{domain.PIISSN, regexp.MustCompile(`(?i)\b\d{3}-\d{2}-\d{4}\b`)},
	{domain.PIICreditCard, regexp.MustCompile(`(?i)\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}\b`)},
	{domain.PIIAccountNumber, regexp.MustCompile(`(?i)\b\d{9,12}\b`)},
	{domain.PIIRoutingNumber, regexp.MustCompile(`(?i)\b\d{9}\b`)},
	{domain.PIIPhone, regexp.MustCompile(`(?i)\b\d{3}[\s\-.]?\d{3}[\s\-.]?\d{4}\b`)},
	{domain.PIIEmail, regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{domain.PIIDriversLicense, regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d{5,8}\b`)},
	{domain.PIIPassport, regexp.MustCompile(`(?i)\b[A-Z][0-9]{8}\b`)},
}

// blockedTerms must never be requested. A query is rejected when its
// lower-cased text contains any term anywhere, so "password123" and
// "cvv2" are caught along with the bare words.
var blockedTerms = []string{
	"password",
	"pin",
	"cvv",
	"security code",
	"secret question",
	"mother's maiden name",
	"full ssn",
	"complete social",
}

// sensitiveTopics flag a query for human review without blocking it.
var sensitiveTopics = []string{
	"fraud", "hack", "breach", "lawsuit", "complaint",
	"bankruptcy", "foreclosure", "collection", "debt",
	"suicide", "self-harm", "death", "divorce", "emergency",
	"investigation", "audit", "compliance violation",
}

var highRiskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`transfer.*all.*money`),
	regexp.MustCompile(`close.*all.*accounts`),
	regexp.MustCompile(`withdraw.*everything`),
	regexp.MustCompile(`give.*access.*account`),
	regexp.MustCompile(`share.*login.*credentials`),
}

var dollarAmount = regexp.MustCompile(`\$[\d,]+`)

// Rejection reasons returned by IsQuerySafe.
const (
	reasonPIIPrefix  = "Query contains sensitive information: "
	reasonRestricted = "Query contains restricted information"
)

// SecurityFilter is a stateless rule engine that screens queries and
// responses for PII and risky requests. It is safe for concurrent use.
type SecurityFilter struct{}

// NewSecurityFilter returns a filter over the built-in rule catalog.
func NewSecurityFilter() *SecurityFilter {
	return &SecurityFilter{}
}

// CheckPII returns every PII match in text. A span may match more than
// one kind; all kinds are evaluated independently.
func (f *SecurityFilter) CheckPII(text string) []domain.PIIMatch {
	var found []domain.PIIMatch
	for _, p := range piiPatterns {
		matches := p.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		logger.Warn("PII detected: type=%s count=%d", p.kind, len(matches))
		for _, m := range matches {
			found = append(found, domain.PIIMatch{Kind: p.kind, Value: m})
		}
	}
	return found
}

// IsQuerySafe reports whether a query may be processed. When it may not,
// reason names the PII kinds found, or stays generic for blocked terms so
// the caller cannot learn which term tripped the check.
func (f *SecurityFilter) IsQuerySafe(query string) (bool, string) {
	if pii := f.CheckPII(query); len(pii) > 0 {
		return false, reasonPIIPrefix + strings.Join(piiKinds(pii), ", ")
	}

	if term, ok := f.blockedTerm(strings.ToLower(query)); ok {
		logger.Warn("Blocked term detected: %s", term)
		return false, reasonRestricted
	}

	// High-risk phrasing is audited, not blocked.
	if p, ok := matchHighRisk(strings.ToLower(query)); ok {
		logger.Warn("High-risk query pattern detected: %s", p)
	}
	return true, ""
}

// RequiresHumanReview reports whether a query touches a sensitive topic
// or uses high-risk phrasing. Advisory only.
func (f *SecurityFilter) RequiresHumanReview(query string) bool {
	lower := strings.ToLower(query)
	if topic, ok := matchTopic(lower); ok {
		logger.Info("Sensitive topic detected, flagging for review: %s", topic)
		return true
	}
	if _, ok := matchHighRisk(lower); ok {
		logger.Info("High-risk pattern detected, flagging for review")
		return true
	}
	return false
}

// RiskLevel grades a query. The first matching tier wins.
func (f *SecurityFilter) RiskLevel(query string) domain.RiskLevel {
	lower := strings.ToLower(query)

	if len(f.CheckPII(query)) > 0 {
		return domain.RiskCritical
	}
	if _, ok := f.blockedTerm(lower); ok {
		return domain.RiskCritical
	}
	if _, ok := matchTopic(lower); ok {
		return domain.RiskHigh
	}
	if _, ok := matchHighRisk(lower); ok {
		return domain.RiskHigh
	}
	if dollarAmount.MatchString(query) || strings.Contains(lower, "account") {
		return domain.RiskMedium
	}
	return domain.RiskLow
}

// Sanitize replaces every PII span with a placeholder naming its kind,
// such as [SSN_REDACTED]. Sanitize is idempotent.
func (f *SecurityFilter) Sanitize(text string) string {
	out, _ := f.SanitizeCount(text)
	return out
}

// SanitizeCount is Sanitize that also reports how many spans were redacted.
func (f *SecurityFilter) SanitizeCount(text string) (string, int) {
	total := 0
	for _, p := range piiPatterns {
		n := len(p.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		logger.Warn("Sanitizing %d %s patterns from response", n, p.kind)
		total += n
		text = p.re.ReplaceAllLiteralString(text, redaction(p.kind))
	}
	return text, total
}

func redaction(kind domain.PIIKind) string {
	return fmt.Sprintf("[%s_REDACTED]", strings.ToUpper(string(kind)))
}

func (f *SecurityFilter) blockedTerm(lower string) (string, bool) {
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

func matchTopic(lower string) (string, bool) {
	for _, topic := range sensitiveTopics {
		if strings.Contains(lower, topic) {
			return topic, true
		}
	}
	return "", false
}

func matchHighRisk(lower string) (string, bool) {
	for _, re := range highRiskPatterns {
		if re.MatchString(lower) {
			return re.String(), true
		}
	}
	return "", false
}

// piiKinds returns the distinct kinds in matches, sorted.
func piiKinds(matches []domain.PIIMatch) []string {
	seen := make(map[domain.PIIKind]bool, len(matches))
	kinds := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m.Kind] {
			seen[m.Kind] = true
			kinds = append(kinds, string(m.Kind))
		}
	}
	sort.Strings(kinds)
	return kinds
}
