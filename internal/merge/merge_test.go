package merge

import (
	"context"
	"strings"
	"testing"

	"github.com/phobologic/pydocgen/internal/extract"
	"github.com/phobologic/pydocgen/internal/model"
)

func mustExtract(t *testing.T, source string) *model.Table {
	t.Helper()
	table, err := extract.Extract(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return table
}

// generated builds results for table from docstrings keyed by qualified
// name. Callables without an entry fail.
func generated(table *model.Table, docs map[string]string) []model.GenerationResult {
	results := make([]model.GenerationResult, len(table.Signatures))
	for i := range table.Signatures {
		name := table.Signatures[i].QualifiedName
		results[i] = model.GenerationResult{Index: i, QualifiedName: name, Status: model.Failed, Failure: model.BackendError}
		if doc, ok := docs[name]; ok {
			results[i].Status = model.Generated
			results[i].Failure = model.NoFailure
			results[i].Docstring = doc
		}
	}
	return results
}

func mustMerge(t *testing.T, source string, docs map[string]string) (string, []model.GenerationResult) {
	t.Helper()
	table := mustExtract(t, source)
	results := generated(table, docs)
	out, err := Merge([]byte(source), Pairs(table, results))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return string(out), results
}

func TestMergeInsertsAfterHeader(t *testing.T) {
	t.Parallel()
	source := "def calculate_area(length, width):\n    return length * width\n"
	got, _ := mustMerge(t, source, map[string]string{
		"calculate_area": "Calculate the area of a rectangle.\n\nArgs:\n    length: The length.\n    width: The width.",
	})
	want := `def calculate_area(length, width):
    """Calculate the area of a rectangle.

    Args:
        length: The length.
        width: The width.
    """
    return length * width
`
	if got != want {
		t.Errorf("merged:\n%s\nwant:\n%s", got, want)
	}
}

func TestMergeReplacesExisting(t *testing.T) {
	t.Parallel()
	source := "class Shape:\n    def area(self):\n        'Old.'\n        return 0\n"
	got, _ := mustMerge(t, source, map[string]string{"Shape.area": "Compute the area."})
	want := "class Shape:\n    def area(self):\n        \"\"\"Compute the area.\"\"\"\n        return 0\n"
	if got != want {
		t.Errorf("merged:\n%s\nwant:\n%s", got, want)
	}
}

func TestMergeInlineBody(t *testing.T) {
	t.Parallel()
	got, _ := mustMerge(t, "def f(x): return x\n", map[string]string{"f": "Return x."})
	want := "def f(x):\n    \"\"\"Return x.\"\"\"\n    return x\n"
	if got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestMergeDecoratedAndNested(t *testing.T) {
	t.Parallel()
	source := `import functools


class Cache:
    @functools.lru_cache(maxsize=None)
    def get(self, key):
        # look it up
        def inner():
            return key
        return inner()
`
	got, _ := mustMerge(t, source, map[string]string{
		"Cache":     "Hold values.",
		"Cache.get": "Fetch a value.\n\nArgs:\n    key: Lookup key.",
	})
	want := `import functools


class Cache:
    """Hold values."""
    @functools.lru_cache(maxsize=None)
    def get(self, key):
        """Fetch a value.

        Args:
            key: Lookup key.
        """
        # look it up
        def inner():
            return key
        return inner()
`
	if got != want {
		t.Errorf("merged:\n%s\nwant:\n%s", got, want)
	}
}

func TestMergeLeavesFailuresUntouched(t *testing.T) {
	t.Parallel()
	source := "def a():\n    pass\n\n\ndef b():\n    'Doc.'\n"
	got, _ := mustMerge(t, source, nil)
	if got != source {
		t.Errorf("source changed without successful results:\n%s", got)
	}

	table := mustExtract(t, source)
	results := generated(table, nil)
	results[1].Status = model.Existing
	results[1].Docstring = "Doc."
	out, err := Merge([]byte(source), Pairs(table, results))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if string(out) != source {
		t.Errorf("existing results must not be rewritten:\n%s", out)
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()
	source := `class Point:
    def __init__(self, x, y):
        self.x = x
        self.y = y

    def norm(self) -> float:
        'Old summary'
        return (self.x ** 2 + self.y ** 2) ** 0.5


def origin(): return Point(0, 0)
`
	once, results := mustMerge(t, source, map[string]string{
		"Point":          "A point in the plane.",
		"Point.__init__": "Create a point.\n\nArgs:\n    x: Abscissa.\n    y: Ordinate.",
		"Point.norm":     "Return the distance to the origin.\n\nReturns:\n    float: The norm.",
		"origin":         "Return the origin.",
	})

	again := []byte(once)
	for i := 0; i < 2; i++ {
		table := mustExtract(t, string(again))
		out, err := Merge(again, Rebind(table, results))
		if err != nil {
			t.Fatalf("Merge pass %d: %v", i+2, err)
		}
		if string(out) != once {
			t.Fatalf("pass %d changed the source:\n%s\nwant:\n%s", i+2, out, once)
		}
		again = out
	}
}

// Statements outside docstring regions keep their relative order, and lines
// move only by the size of the inserted blocks.
func TestMergePreservesCode(t *testing.T) {
	t.Parallel()
	source := "def a(x):\n    y = x + 1\n    return y\n\n\ndef b():\n    return 2\n"
	got, _ := mustMerge(t, source, map[string]string{
		"a": "Add one.\n\nArgs:\n    x: Input.",
		"b": "Return two.",
	})

	blockA := "    \"\"\"Add one.\n\n    Args:\n        x: Input.\n    \"\"\"\n"
	blockB := "    \"\"\"Return two.\"\"\"\n"
	if !strings.Contains(got, blockA) || !strings.Contains(got, blockB) {
		t.Fatalf("docstring blocks missing:\n%s", got)
	}
	code := strings.Replace(strings.Replace(got, blockA, "", 1), blockB, "", 1)
	if code != source {
		t.Errorf("code outside docstrings changed:\n%s", code)
	}
	if delta := strings.Count(got, "\n") - strings.Count(source, "\n"); delta != 6 {
		t.Errorf("line delta = %d, want 6", delta)
	}
}

func TestMergeCRLF(t *testing.T) {
	t.Parallel()
	source := "def f(x):\r\n    return x\r\n"
	got, _ := mustMerge(t, source, map[string]string{"f": "Return x.\n\nArgs:\n    x: Value."})
	want := "def f(x):\r\n    \"\"\"Return x.\r\n\r\n    Args:\r\n        x: Value.\r\n    \"\"\"\r\n    return x\r\n"
	if got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestMergeRejectsOverlap(t *testing.T) {
	t.Parallel()
	source := "def f():\n    pass\n"
	table := mustExtract(t, source)
	results := generated(table, map[string]string{"f": "Do nothing."})
	pairs := Pairs(table, results)
	pairs = append(pairs, pairs[0])
	if _, err := Merge([]byte(source), pairs); err == nil {
		t.Error("expected an overlap error")
	}
}

func TestMergeRejectsBadSpan(t *testing.T) {
	t.Parallel()
	sig := &model.CallableSignature{QualifiedName: "f", Span: model.Span{StartByte: 5, EndByte: 50, StartLine: 1, EndLine: 1}}
	res := &model.GenerationResult{Status: model.Generated, Docstring: "Doc."}
	if _, err := Merge([]byte("short"), []model.Pair{{Signature: sig, Result: res}}); err == nil {
		t.Error("expected an out-of-range error")
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"single", "Do it.", `"""Do it."""`},
		{"multi", "Do it.\n\nMore.", "\"\"\"Do it.\n\n    More.\n    \"\"\""},
		{"backslash", `Match \d+ digits.`, `r"""Match \d+ digits."""`},
		{"embedded quotes", `Print """ to stdout.`, `'''Print """ to stdout.'''`},
		{"trailing quote", `Say "hi"`, `"""Say "hi" """`},
		{"surrounding space", "\n  Do it.  \n", `"""Do it."""`},
		{"nested indent", "Do it.\n\nArgs:\n    x: X.", "\"\"\"Do it.\n\n    Args:\n        x: X.\n    \"\"\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Quote(tt.doc, "    ", "\n"); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.doc, got, tt.want)
			}
		})
	}
}

func TestRebindRepeatedNames(t *testing.T) {
	t.Parallel()
	source := "def f():\n    pass\n\n\ndef f():\n    pass\n"
	table := mustExtract(t, source)
	results := []model.GenerationResult{
		{QualifiedName: "f", Status: model.Generated, Docstring: "First."},
		{QualifiedName: "f", Status: model.Generated, Docstring: "Second."},
	}
	pairs := Rebind(table, results)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Result.Docstring != "First." || pairs[1].Result.Docstring != "Second." {
		t.Errorf("pairs bound out of order: %q, %q", pairs[0].Result.Docstring, pairs[1].Result.Docstring)
	}
}
