package taxonomy

import (
	"strings"

	"telcosync/internal/textutil"
)

// Method is recorded on every classification this package produces.
const Method = "taxonomy_regex"

// DNC reasons.
const (
	ReasonExplicitRequest = "explicit_request"
	ReasonDeceased        = "deceased"
	ReasonHostile         = "hostile"
	ReasonLegalThreat     = "legal_threat"
	ReasonVulnerable      = "vulnerable"
)

// Contact statuses, from worst to best.
const (
	StatusDeceased    = "deceased"
	StatusClosed      = "closed"
	StatusRetired     = "retired"
	StatusInvalid     = "invalid"
	StatusVulnerable  = "vulnerable"
	StatusLeftCompany = "left_company"
	StatusActive      = "active"
)

// Lead statuses.
const (
	LeadCold = "cold"
	LeadWarm = "warm"
	LeadHot  = "hot"
	LeadLost = "lost"
	LeadDNC  = "dnc"
)

var statusRank = map[string]int{
	StatusDeceased:    0,
	StatusClosed:      1,
	StatusRetired:     2,
	StatusInvalid:     3,
	StatusVulnerable:  4,
	StatusLeftCompany: 5,
	StatusActive:      6,
}

// WorseStatus returns whichever of a and b ranks worse. Unknown statuses
// rank below active.
func WorseStatus(a, b string) string {
	ra, ok := statusRank[a]
	if !ok {
		ra = statusRank[StatusActive]
	}
	rb, ok := statusRank[b]
	if !ok {
		rb = statusRank[StatusActive]
	}
	if rb < ra {
		return b
	}
	return a
}

// Verdict is the CRM-facing result derived from a flag set.
type Verdict struct {
	IsDNC              bool
	DNCReason          string
	ContactStatus      string
	LeadStatus         string
	LeadScore          int
	CallbackRequested  bool
	Hostile            bool
	VoicemailFull      bool
	RequiresEscalation bool
}

// Result is a classified text: the flags that fired, in catalog order, and
// the verdict derived from them.
type Result struct {
	Flags   []string
	Verdict Verdict
}

// Detect returns the names of every flag whose patterns match text.
func Detect(text string) []string {
	folded := textutil.Fold(text)
	if folded == "" {
		return nil
	}
	var fired []string
	for _, f := range catalog {
		for _, p := range f.Patterns {
			if p.MatchString(folded) {
				fired = append(fired, f.Name)
				break
			}
		}
	}
	return fired
}

// Classify detects flags over the transcript and the provider summary and
// derives the verdict. The same input always yields the same Result.
func Classify(transcript, summary string) Result {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(transcript); t != "" {
		parts = append(parts, t)
	}
	if s := strings.TrimSpace(summary); s != "" {
		parts = append(parts, s)
	}
	flags := Detect(strings.Join(parts, "\n"))
	return Result{Flags: flags, Verdict: Derive(flags)}
}

// Derive turns a flag set into a verdict. Rules apply in a fixed order and
// the highest-priority DNC cause names the reason.
func Derive(flags []string) Verdict {
	has := make(map[string]bool, len(flags))
	for _, f := range flags {
		has[f] = true
	}
	v := Verdict{ContactStatus: StatusActive, LeadStatus: LeadCold, LeadScore: 50}

	// Only the highest-priority DNC cause applies, side effects included.
	switch {
	case has[DNCRequest] || has[DNCRegistryMention]:
		v.markDNC(ReasonExplicitRequest)
	case has[Deceased]:
		v.markDNC(ReasonDeceased)
		v.ContactStatus = StatusDeceased
	case has[ProfanityAbuse]:
		v.markDNC(ReasonHostile)
		v.Hostile = true
	case has[LegalThreat]:
		v.markDNC(ReasonLegalThreat)
		v.RequiresEscalation = true
	case has[VulnerableCustomer]:
		v.markDNC(ReasonVulnerable)
		v.ContactStatus = StatusVulnerable
	}

	if has[Retired] {
		v.ContactStatus = WorseStatus(v.ContactStatus, StatusRetired)
		v.LeadScore -= 40
	}
	if has[OutOfBusiness] {
		v.ContactStatus = WorseStatus(v.ContactStatus, StatusClosed)
		v.LeadScore = 0
	}
	if has[WrongNumber] || has[Disconnected] {
		v.ContactStatus = WorseStatus(v.ContactStatus, StatusInvalid)
		v.LeadScore = 0
	}
	if has[NoLongerAtCompany] {
		v.ContactStatus = WorseStatus(v.ContactStatus, StatusLeftCompany)
		v.LeadScore -= 30
	}

	if !v.IsDNC {
		switch {
		case has[SaleClosed] || has[AppointmentSet]:
			v.LeadStatus = LeadHot
			v.LeadScore = 100
		case has[SentimentPositive]:
			v.LeadStatus = LeadWarm
			v.LeadScore += 30
		case has[HardObjection]:
			v.LeadStatus = LeadLost
			v.LeadScore -= 30
		case has[SoftObjectionCallback]:
			v.CallbackRequested = true
			v.LeadStatus = LeadWarm
			v.LeadScore += 10
		}
		if has[SentimentAngry] {
			v.LeadScore -= 20
		}
		if has[SentimentUrgent] {
			v.LeadScore += 20
		}
	}
	if has[VoicemailFull] {
		v.VoicemailFull = true
	}

	v.LeadScore = clamp(v.LeadScore, 0, 100)
	if v.IsDNC {
		v.LeadScore = 0
	}
	return v
}

func (v *Verdict) markDNC(reason string) {
	v.IsDNC = true
	v.DNCReason = reason
	v.LeadStatus = LeadDNC
	v.LeadScore = 0
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// SentimentLabel derives a coarse sentiment label from the flags when the
// provider supplied none.
func SentimentLabel(flags []string) string {
	for _, f := range flags {
		switch f {
		case SentimentAngry, ProfanityAbuse:
			return "negative"
		}
	}
	for _, f := range flags {
		switch f {
		case SentimentPositive, SaleClosed, AppointmentSet:
			return "positive"
		}
	}
	return "neutral"
}
