package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rrens/invest-agent/internal/domain"
)

// ViolationError describes which rule rejected the input
type ViolationError struct {
	Rule string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrPolicyViolation, e.Rule)
}

func (e *ViolationError) Unwrap() error {
	return domain.ErrPolicyViolation
}

// Guard is the responsible-AI filter applied to user input before any
// external call is made.
type Guard struct {
	piiPatterns map[string]*regexp.Regexp
	keywords    []string
}

// NewGuard creates a guard with the personal-data patterns and harmful keyword list
func NewGuard() *Guard {
	return &Guard{
		piiPatterns: map[string]*regexp.Regexp{
			"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			"credit_card": regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
			"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
		},
		keywords: []string{
			"racial slur", "discrimination", "violence against", "hate speech",
			"terrorist", "terrorism", "bomb", "explosive", "weapon", "gun",
			"suicide", "self harm", "kill yourself", "harm others",
			"sexual content", "explicit", "pornographic", "arousal",
			"gambling", "casino", "betting",
			"illegal drugs", "pharmaceuticals",
			"phishing", "scam", "fraud", "illegal activity", "jailbreak",
			"threaten", "intimidate", "bully", "abuse", "harass",
		},
	}
}

// Check returns a *ViolationError wrapping domain.ErrPolicyViolation when the
// input contains personal data or a harmful keyword.
func (g *Guard) Check(input string) error {
	for _, rule := range []string{"ssn", "credit_card", "email"} {
		if g.piiPatterns[rule].MatchString(input) {
			return &ViolationError{Rule: rule}
		}
	}

	lower := strings.ToLower(input)
	for _, k := range g.keywords {
		if strings.Contains(lower, k) {
			return &ViolationError{Rule: "keyword"}
		}
	}

	return nil
}
