package shellformat

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "git status", "git status"},
		{"extra whitespace", "  git   status  ", "git status"},
		{"pipe", "cat foo | grep bar", "cat foo | grep bar"},
		{"multiple statements", "git add .; git commit", "git add .\ngit commit"},
		{"unparseable returns input", "if then fi ((", "if then fi (("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	stmts, ok := Statements("git status; rm -rf /tmp/x && echo done")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if stmts[0] != "git status" {
		t.Errorf("first statement = %q, want %q", stmts[0], "git status")
	}

	stmts, ok = Statements("")
	if !ok || len(stmts) != 0 {
		t.Errorf("empty input: got (%v, %v)", stmts, ok)
	}

	stmts, ok = Statements("((broken")
	if ok {
		t.Error("expected ok=false for unparseable input")
	}
	if len(stmts) != 1 {
		t.Errorf("unparseable input should yield one pseudo-statement, got %v", stmts)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"git status", 80, "git status"},
		{"git   status", 80, "git status"},
		{"echo aaaaaaaaaa", 10, "echo aa..."},
		{"git status", 0, "git status"},
	}

	for _, tt := range tests {
		got := Summarize(tt.input, tt.maxLen)
		if got != tt.want {
			t.Errorf("Summarize(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
