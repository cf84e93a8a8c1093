package toon

import (
	"errors"
	"strings"
	"testing"

	"github.com/phobologic/pydocgen/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
		{"signature no special", "run(self) -> None", "run(self) -> None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeReport(t *testing.T) {
	t.Parallel()

	files := []model.FileReport{
		{
			Path:    "src/shapes.py",
			Changed: true,
			Report: &model.ValidationReport{
				Total:      2,
				Documented: 2,
				Compliant:  1,
				Callables: []model.CallableReport{
					{Name: "area", Kind: model.Function, Line: 1, Documented: true, Compliant: true, Status: model.StatusCompliant, Result: model.Generated},
					{Name: "Shape.ok", Kind: model.Method, Line: 9, Documented: true, Errors: 1, Status: model.StatusNonCompliant, Result: model.Existing},
				},
				Issues: []model.ValidationIssue{
					{Rule: "R6", Code: "DAR201", Severity: model.SeverityError, Callable: "Shape.ok", Line: 10, Message: `missing return section for annotation "bool"`},
				},
			},
			Results: []model.GenerationResult{
				{QualifiedName: "area", Status: model.Generated, Notes: []string{"width is never validated"}},
			},
		},
		{Path: "src/broken.py", Err: errors.New("syntax error at line 1, column 8: missing \")\"")},
	}

	got := EncodeReport(files)
	lines := strings.Split(got, "\n")
	want := []string{
		"callables: 2",
		"documented: 2",
		"compliant: 1",
		"errors: 1",
		"warnings: 0",
		"files[1]{path,total,documented,compliant,errors,warnings,changed}:",
		"  src/shapes.py,2,2,1,1,0,yes",
		"callables[2]{file,name,kind,line,status,result,failure}:",
		`  src/shapes.py,area,function,1,compliant,generated,""`,
		`  src/shapes.py,Shape.ok,method,9,non_compliant,existing,""`,
		"issues[1]{file,line,callable,rule,code,severity,message}:",
		`  src/shapes.py,10,Shape.ok,R6,DAR201,error,"missing return section for annotation \"bool\""`,
		"rules[1]{rule,code,severity,count}:",
		"  R6,DAR201,error,1",
		"notes[1]{file,callable,note}:",
		"  src/shapes.py,area,width is never validated",
		"errors[1]{file,error}:",
		`  src/broken.py,"syntax error at line 1, column 8: missing \")\""`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeReportEmpty(t *testing.T) {
	t.Parallel()

	got := EncodeReport(nil)
	for _, section := range []string{
		"callables: 0",
		"files[0]{path,total,documented,compliant,errors,warnings,changed}:",
		"issues[0]{file,line,callable,rule,code,severity,message}:",
		"rules[0]{rule,code,severity,count}:",
	} {
		if !strings.Contains(got, section) {
			t.Errorf("expected %q in:\n%s", section, got)
		}
	}
	if strings.Contains(got, "notes[") || strings.Contains(got, "errors[") {
		t.Errorf("empty optional sections rendered:\n%s", got)
	}
}

func TestEncodeCoverage(t *testing.T) {
	t.Parallel()

	files := []model.FileReport{
		{Path: "a.py", Coverage: model.Coverage{Total: 4, Documented: 1, Undocumented: 3}},
		{Path: "b.py", Coverage: model.Coverage{Total: 0}},
		{Path: "c.py", Err: errors.New("unreadable")},
	}
	got := EncodeCoverage(files)
	want := `callables: 4
documented: 1
coverage: 25.0
files[2]{path,total,documented,undocumented,coverage}:
  a.py,4,1,3,25.0
  b.py,0,0,0,0.0
errors[1]{file,error}:
  c.py,unreadable`
	if got != want {
		t.Errorf("EncodeCoverage:\n%s\nwant:\n%s", got, want)
	}
}
