package generation

import "strings"

// OutcomeKind classifies a generated reply.
type OutcomeKind int

const (
	// OutcomeContinue: plain reply, deliver verbatim.
	OutcomeContinue OutcomeKind = iota

	// OutcomeTransfer: the model asked for a human takeover. The reply is
	// suppressed, the conversation goes HUMAN_ACTIVE.
	OutcomeTransfer

	// OutcomeQualified: the lead is ready for hand-off. The stripped reply
	// is still delivered, then the lead is distributed to an agent.
	OutcomeQualified
)

// String returns the outcome name for logging.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTransfer:
		return "transfer"
	case OutcomeQualified:
		return "qualified"
	default:
		return "continue"
	}
}

// Outcome is the typed result of parsing a generated reply. Text always has
// the control markers removed.
type Outcome struct {
	Kind OutcomeKind
	Text string
}

// ParseReply strips and interprets control markers. Markers are matched
// case-insensitively anywhere in the reply; a transfer marker wins if the
// model emitted both. This is the only place marker text is examined.
func ParseReply(reply, transferMarker, qualifiedMarker string) Outcome {
	out := Outcome{Kind: OutcomeContinue, Text: reply}

	if transferMarker != "" && containsFold(reply, transferMarker) {
		out.Kind = OutcomeTransfer
		out.Text = stripFold(out.Text, transferMarker)
	}
	if qualifiedMarker != "" && containsFold(reply, qualifiedMarker) {
		if out.Kind == OutcomeContinue {
			out.Kind = OutcomeQualified
		}
		out.Text = stripFold(out.Text, qualifiedMarker)
	}

	out.Text = strings.TrimSpace(out.Text)
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// stripFold removes every case-insensitive occurrence of sub from s.
func stripFold(s, sub string) string {
	lower := strings.ToLower(s)
	sub = strings.ToLower(sub)

	var b strings.Builder
	for {
		i := strings.Index(lower, sub)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+len(sub):]
		lower = lower[i+len(sub):]
	}
}
