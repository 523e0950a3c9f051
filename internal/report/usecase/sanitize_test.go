package usecase

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "Fix the login flow",
			want:  "Fix the login flow",
		},
		{
			name:  "urls removed",
			input: "Deploy per https://internal.example.com/runbook today",
			want:  "Deploy per today",
		},
		{
			name:  "mentions removed",
			input: "Ping @alice.smith and @ops-team about the outage",
			want:  "Ping and about the outage",
		},
		{
			name:  "bare at sign removed",
			input: "Meet @ noon to triage",
			want:  "Meet noon to triage",
		},
		{
			name:  "trailing at sign removed",
			input: "Ping ops@ about the outage",
			want:  "Ping ops about the outage",
		},
		{
			name:  "long alphanumeric token redacted",
			input: "Rotate key sk1234567890abcdef1234567890abcdef now",
			want:  "Rotate key [TOKEN] now",
		},
		{
			name:  "markdown characters stripped",
			input: "Update `config` for *prod* and _staging_ ~soon~",
			want:  "Update config for prod and staging soon",
		},
		{
			name:  "whitespace collapsed",
			input: "  Fix   \t the \n spacing  ",
			want:  "Fix the spacing",
		},
		{
			name:  "everything at once",
			input: "Deploy `service` to https://internal.example.com/path cc @ops key sk1234567890abcdef1234567890abcdef",
			want:  "Deploy service to cc key [TOKEN]",
		},
		{
			name:  "short alphanumeric string kept",
			input: "Bump v2 of abc123def456",
			want:  "Bump v2 of abc123def456",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeText(tt.input); got != tt.want {
				t.Errorf("sanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
