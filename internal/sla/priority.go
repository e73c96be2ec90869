package sla

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

var priorityAliases = map[string]domain.TicketPriority{
	"low":      domain.TicketPriorityLow,
	"baixa":    domain.TicketPriorityLow,
	"baja":     domain.TicketPriorityLow,
	"medium":   domain.TicketPriorityMedium,
	"media":    domain.TicketPriorityMedium,
	"normal":   domain.TicketPriorityMedium,
	"high":     domain.TicketPriorityHigh,
	"alta":     domain.TicketPriorityHigh,
	"critical": domain.TicketPriorityCritical,
	"critica":  domain.TicketPriorityCritical,
	"urgent":   domain.TicketPriorityCritical,
	"urgente":  domain.TicketPriorityCritical,
}

// FoldPriority lowercases a priority name and strips diacritics, so "Média"
// and "media" compare equal.
func FoldPriority(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	// transformers carry state; build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, folded); err == nil {
		folded = out
	}
	return folded
}

// CanonicalPriority maps English or localized names onto the legacy levels.
func CanonicalPriority(name string) (domain.TicketPriority, bool) {
	p, ok := priorityAliases[FoldPriority(name)]
	return p, ok
}

// samePriority compares names by canonical level when both have one, and by
// folded text otherwise.
func samePriority(a, b string) bool {
	fa, fb := FoldPriority(a), FoldPriority(b)
	if fa == "" || fb == "" {
		return false
	}
	ca, okA := priorityAliases[fa]
	cb, okB := priorityAliases[fb]
	if okA && okB {
		return ca == cb
	}
	return fa == fb
}
