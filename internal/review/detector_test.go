package review

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type issueShape struct {
	Type     IssueType
	Severity Severity
	Title    string
	Line     Range
	Column   Range
}

func shapes(issues []Issue) []issueShape {
	out := make([]issueShape, len(issues))
	for i, is := range issues {
		out[i] = issueShape{is.Type, is.Severity, is.Title, is.Line, is.Column}
	}
	return out
}

func TestDetect_Example(t *testing.T) {
	code := "var x = 1;\nconsole.log(x);\nconst apiKey = \"sk-abc\";"
	got := NewDetector(nil).Detect(code, "javascript")

	want := []issueShape{
		{TypeSecurity, SeverityCritical, "Hardcoded Credentials Detected", Range{3, 3}, Range{1, 60}},
		{TypeStyle, SeverityLow, "Console Statement Found", Range{2, 2}, Range{1, 30}},
		{TypeStyle, SeverityMedium, "Use of var Keyword", Range{1, 1}, Range{1, 20}},
	}
	if diff := cmp.Diff(want, shapes(got)); diff != "" {
		t.Errorf("Detect mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_Eval(t *testing.T) {
	code := "const a = 1;\nconst b = eval(input);\n"
	got := NewDetector(nil).Detect(code, "python")

	var found bool
	for _, is := range got {
		if is.Title == "Dangerous eval() Usage" {
			found = true
			if is.Type != TypeSecurity || is.Severity != SeverityCritical {
				t.Errorf("eval issue = %s/%s, want security/critical", is.Type, is.Severity)
			}
			if is.Line != (Range{2, 2}) {
				t.Errorf("eval line = %v, want [2,2]", is.Line)
			}
		}
	}
	if !found {
		t.Error("expected eval issue")
	}
}

func TestDetect_FunctionConstructor(t *testing.T) {
	got := NewDetector(nil).Detect("const f = new Function('return 1');", "javascript")
	if got[0].Title != "Dangerous eval() Usage" {
		t.Errorf("first issue = %q, want eval issue", got[0].Title)
	}
}

func TestDetect_CredentialCategories(t *testing.T) {
	code := `API_KEY = "a"
password = 'b'
Secret="c"
token = "d"`
	got := NewDetector(nil).Detect(code, "python")

	var lines []int
	for _, is := range got {
		if is.Title == "Hardcoded Credentials Detected" {
			lines = append(lines, is.Line.Start)
			if is.CodeExample == "" {
				t.Error("credential issue missing code example")
			}
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, lines); diff != "" {
		t.Errorf("credential lines (-want +got):\n%s", diff)
	}
}

func TestDetect_LoopSpan(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Range
	}{
		{"clamped to line count", "let s = '';\nfor (const x of xs) {\n  s += x;\n}", Range{2, 4}},
		{"three lines after", "for (;;) {\n s += 1\n}\n\n\n\n", Range{1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDetector(nil).Detect(tt.code, "javascript")
			for _, is := range got {
				if is.Type == TypePerformance {
					if is.Line != tt.want {
						t.Errorf("line = %v, want %v", is.Line, tt.want)
					}
					return
				}
			}
			t.Error("expected performance issue")
		})
	}
}

func TestDetect_VarOnlyForScriptLanguages(t *testing.T) {
	for _, lang := range []string{"JavaScript", "typescript", "js", "TS", "jsx", "tsx"} {
		got := NewDetector(nil).Detect("var a = 1;", lang)
		if got[0].Title != "Use of var Keyword" {
			t.Errorf("%s: first issue = %q, want var issue", lang, got[0].Title)
		}
	}
	for _, lang := range []string{"go", "python", ""} {
		for _, is := range NewDetector(nil).Detect("var a = 1", lang) {
			if is.Title == "Use of var Keyword" {
				t.Errorf("%s: unexpected var issue", lang)
			}
		}
	}
}

func TestDetect_AsyncWithoutTryCatch(t *testing.T) {
	code := "async function load() {\n  await fetch(u);\n}"
	got := NewDetector(nil).Detect(code, "javascript")
	if got[0].Title != "Missing Error Handling" || got[0].Severity != SeverityHigh {
		t.Fatalf("first issue = %+v, want missing error handling", got[0])
	}
	if got[0].Line != (Range{1, 3}) {
		t.Errorf("line = %v, want [1,3]", got[0].Line)
	}

	guarded := "async function load() {\n  try { await fetch(u) } catch (e) {}\n}"
	for _, is := range NewDetector(nil).Detect(guarded, "javascript") {
		if is.Title == "Missing Error Handling" {
			t.Error("unexpected issue when try/catch present")
		}
	}
}

func TestDetect_DocReminder(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"clean", "fn main() {}", 1},
		{"one rule", "console.log(1)", 2},
		{"two rules", "console.log(1)\nx = eval(y)", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDetector(nil).Detect(tt.code, "rust")
			if len(got) != tt.want {
				t.Fatalf("got %d issues, want %d", len(got), tt.want)
			}
			reminders := 0
			for _, is := range got {
				if is.Title == "Code Structure" {
					reminders++
				}
			}
			if reminders != 1 {
				t.Fatalf("got %d documentation reminders, want 1", reminders)
			}
			last := got[len(got)-1]
			if last.Title != "Code Structure" || last.Type != TypeStyle || last.Severity != SeverityLow ||
				last.Line != (Range{1, 1}) || last.Column != (Range{1, 10}) {
				t.Errorf("reminder = %+v", last)
			}
		})
	}
}

func TestDetect_NoReminderWhenEnoughIssues(t *testing.T) {
	code := "var x = 1;\nconsole.log(x);\nconst apiKey = \"sk-abc\";"
	for _, is := range NewDetector(nil).Detect(code, "javascript") {
		if is.Title == "Code Structure" {
			t.Error("unexpected documentation reminder")
		}
	}
}

func TestDetect_UniqueIDs(t *testing.T) {
	d := NewDetector(nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		for _, is := range d.Detect("eval(x); password = 'p'", "javascript") {
			if is.ID == "" || seen[is.ID] {
				t.Fatalf("bad or duplicate id %q", is.ID)
			}
			seen[is.ID] = true
		}
	}
}

func TestDetect_Deterministic(t *testing.T) {
	code := "var a = 1;\nfor (i in xs) { a += i }\nconsole.error(a)"
	d := NewDetector(nil)
	first := d.Detect(code, "ts")
	second := d.Detect(code, "ts")
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Issue{}, "ID")); diff != "" {
		t.Errorf("Detect not deterministic (-first +second):\n%s", diff)
	}
}
