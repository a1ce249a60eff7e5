package admission

import (
	"strings"

	"github.com/vdavid/replydesk/internal/models"
)

// Reasons reported for blocked senders.
const (
	ReasonBlockedAddress = "blocked_address"
	ReasonNotAllowed     = "not_allowed"
	ReasonInvalidAddress = "invalid_address"
)

// Rules is the admission configuration. All entries are compared case-insensitively.
type Rules struct {
	AllowedDomains   []string
	AllowedAddresses []string
	BlockedAddresses []string
}

// Policy decides whether a sender may receive a reply. It is default-deny and
// has no side effects, so it is safe for concurrent use.
type Policy struct {
	allowedDomains   []string
	allowedAddresses map[string]struct{}
	blockedAddresses map[string]struct{}
}

// NewPolicy builds a Policy from rules.
func NewPolicy(rules Rules) *Policy {
	p := &Policy{
		allowedAddresses: make(map[string]struct{}, len(rules.AllowedAddresses)),
		blockedAddresses: make(map[string]struct{}, len(rules.BlockedAddresses)),
	}

	for _, domain := range rules.AllowedDomains {
		domain = strings.TrimPrefix(normalize(domain), "@")
		if domain != "" {
			p.allowedDomains = append(p.allowedDomains, domain)
		}
	}
	for _, address := range rules.AllowedAddresses {
		if address = normalize(address); address != "" {
			p.allowedAddresses[address] = struct{}{}
		}
	}
	for _, address := range rules.BlockedAddresses {
		if address = normalize(address); address != "" {
			p.blockedAddresses[address] = struct{}{}
		}
	}

	return p
}

// IsAllowed reports whether email may be answered.
func (p *Policy) IsAllowed(email string) bool {
	return p.Decide(email).Allowed
}

// Decide returns the admission decision for email. A blocked address is never
// allowed, even when it also matches an allow rule.
func (p *Policy) Decide(email string) models.AdmissionDecision {
	email = normalize(email)

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return models.AdmissionDecision{Reason: ReasonInvalidAddress}
	}

	if _, blocked := p.blockedAddresses[email]; blocked {
		return models.AdmissionDecision{Reason: ReasonBlockedAddress}
	}

	if _, ok := p.allowedAddresses[email]; ok {
		return models.AdmissionDecision{Allowed: true}
	}

	domain := email[at+1:]
	for _, allowed := range p.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return models.AdmissionDecision{Allowed: true}
		}
	}

	return models.AdmissionDecision{Reason: ReasonNotAllowed}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
