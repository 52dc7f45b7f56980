package generation

import "testing"

func TestParseReply(t *testing.T) {
	const transfer = "[[transfer]]"
	const qualified = "[[qualified]]"

	tests := []struct {
		name  string
		reply string
		kind  OutcomeKind
		text  string
	}{
		{"plain reply", "Happy to help!", OutcomeContinue, "Happy to help!"},
		{"transfer marker", "Let me get a human. [[transfer]]", OutcomeTransfer, "Let me get a human."},
		{"qualified marker", "[[qualified]] Great, our team will reach out.", OutcomeQualified, "Great, our team will reach out."},
		{"marker mid-reply", "One sec [[transfer]] please", OutcomeTransfer, "One sec  please"},
		{"case insensitive", "done [[TRANSFER]]", OutcomeTransfer, "done"},
		{"transfer wins over qualified", "[[transfer]] [[qualified]] hm", OutcomeTransfer, "hm"},
		{"repeated marker stripped everywhere", "[[qualified]] ok [[qualified]]", OutcomeQualified, "ok"},
		{"marker only", "[[transfer]]", OutcomeTransfer, ""},
		{"empty reply", "", OutcomeContinue, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseReply(tt.reply, transfer, qualified)
			if out.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.kind)
			}
			if out.Text != tt.text {
				t.Errorf("Text = %q, want %q", out.Text, tt.text)
			}
		})
	}
}

func TestParseReply_EmptyMarkers(t *testing.T) {
	out := ParseReply("[[transfer]] untouched", "", "")
	if out.Kind != OutcomeContinue {
		t.Errorf("Kind = %v, want continue", out.Kind)
	}
	if out.Text != "[[transfer]] untouched" {
		t.Errorf("Text = %q, marker should not be stripped without config", out.Text)
	}
}

func TestOutcomeKind_String(t *testing.T) {
	if OutcomeContinue.String() != "continue" ||
		OutcomeTransfer.String() != "transfer" ||
		OutcomeQualified.String() != "qualified" {
		t.Error("OutcomeKind names mismatch")
	}
}
