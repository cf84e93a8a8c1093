package style

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/pydocgen/internal/model"
)

func areaSig() *model.CallableSignature {
	return &model.CallableSignature{
		Name:          "calculate_area",
		QualifiedName: "calculate_area",
		Kind:          model.Function,
		Params: []model.Parameter{
			{Name: "length", Type: "float"},
			{Name: "width", Type: "float"},
		},
		Returns:    "float",
		Raises:     []string{"ValueError"},
		Signature:  "calculate_area(length: float, width: float) -> float",
		Source:     "def calculate_area(length: float, width: float) -> float:\n    return length * width",
		Line:       1,
		Owner:      -1,
		Visibility: model.Public,
	}
}

func sampleFacts() *Facts {
	return &Facts{
		Summary:     "Calculate the area of a rectangle.",
		Description: "Longer text.\n\nSecond paragraph.",
		Params: []Param{
			{Name: "length", Type: "float", Desc: "The length."},
			{Name: "width", Desc: "The width.\nMay be zero."},
		},
		Returns: &Return{Type: "float", Desc: "The area."},
		Raises:  []Raise{{Type: "ValueError", Desc: "If a side is negative."}},
	}
}

func TestRenderGoogle(t *testing.T) {
	t.Parallel()
	got := Render(model.Google, sampleFacts())
	want := `Calculate the area of a rectangle.

Longer text.

Second paragraph.

Args:
    length (float): The length.
    width: The width.
        May be zero.

Returns:
    float: The area.

Raises:
    ValueError: If a side is negative.`
	assert.Equal(t, want, got)
}

func TestRenderNumPy(t *testing.T) {
	t.Parallel()
	f := sampleFacts()
	f.Description = ""
	got := Render(model.NumPy, f)
	want := `Calculate the area of a rectangle.

Parameters
----------
length : float
    The length.
width
    The width.
    May be zero.

Returns
-------
float
    The area.

Raises
------
ValueError
    If a side is negative.`
	assert.Equal(t, want, got)
}

func TestRenderReST(t *testing.T) {
	t.Parallel()
	f := sampleFacts()
	f.Description = ""
	f.Params[1].Desc = "The width."
	got := Render(model.ReST, f)
	want := `Calculate the area of a rectangle.

:param length: The length.
:type length: float
:param width: The width.

:returns: The area.
:rtype: float

:raises ValueError: If a side is negative.`
	assert.Equal(t, want, got)
}

func TestRenderSummaryOnly(t *testing.T) {
	t.Parallel()
	for _, st := range model.Styles {
		assert.Equal(t, "Do it.", Render(st, &Facts{Summary: "Do it."}), st.String())
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	for _, st := range model.Styles {
		t.Run(st.String(), func(t *testing.T) {
			t.Parallel()
			want := sampleFacts()
			got := Parse(st, Render(st, want))

			assert.Equal(t, want.Summary, got.Summary)
			assert.Equal(t, want.Description, got.Description)
			assert.Equal(t, want.Params, got.Params)
			assert.Equal(t, want.Returns, got.Returns)
			assert.Equal(t, want.Raises, got.Raises)
		})
	}
}

// The same signature must yield the same documented parameter set and
// returns requirement in every style.
func TestSkeletonConsistentAcrossStyles(t *testing.T) {
	t.Parallel()
	sig := areaSig()
	for _, st := range model.Styles {
		f := Parse(st, Render(st, Skeleton(sig)))
		assert.Equal(t, []string{"length", "width"}, f.Names(), st.String())
		require.NotNil(t, f.Returns, st.String())
		assert.Equal(t, "float", f.Returns.Type, st.String())
		require.Len(t, f.Raises, 1, st.String())
		assert.Equal(t, "ValueError", f.Raises[0].Type, st.String())
	}
}

func TestYieldsSection(t *testing.T) {
	t.Parallel()
	f := &Facts{Summary: "Count up.", Returns: &Return{Type: "int", Desc: "The next number.", Yields: true}}

	assert.Contains(t, Render(model.Google, f), "Yields:\n    int: The next number.")
	assert.Contains(t, Render(model.NumPy, f), "Yields\n------\nint")
	assert.Contains(t, Render(model.ReST, f), ":yields: The next number.\n:ytype: int")

	for _, st := range model.Styles {
		got := Parse(st, Render(st, f))
		require.NotNil(t, got.Returns, st.String())
		assert.True(t, got.Returns.Yields, st.String())
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want model.Style
		ok   bool
	}{
		{"google", "Do it.\n\nArgs:\n    x: The x.", model.Google, true},
		{"numpy", "Do it.\n\nParameters\n----------\nx : int\n    The x.", model.NumPy, true},
		{"rest", "Do it.\n\n:param x: The x.", model.ReST, true},
		{"rest returns", "Do it.\n\n:returns: Nothing much.", model.ReST, true},
		{"plain", "Do it.\n\nMore words.", model.Google, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Detect(tt.text)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseGoogleVariants(t *testing.T) {
	t.Parallel()
	text := `Fetch rows.

Arguments:
    table (Mapping[str, int]): Table to read.
    *args: Extra filters.
    **kwargs: Options.

Example:
    fetch("t")

Return:
    list[int]: Row ids.`
	f := Parse(model.Google, text)
	assert.Equal(t, "Fetch rows.", f.Summary)
	assert.Equal(t, []string{"table", "args", "kwargs"}, f.Names())
	assert.Equal(t, "Mapping[str, int]", f.Params[0].Type)
	assert.Equal(t, "Example:\n    fetch(\"t\")", f.Description)
	require.NotNil(t, f.Returns)
	assert.Equal(t, "list[int]", f.Returns.Type)
	assert.Equal(t, "Row ids.", f.Returns.Desc)
}

func TestParseNumPyGroupedParams(t *testing.T) {
	t.Parallel()
	text := "Add.\n\nParameters\n----------\nx, y : int\n    Operands.\n\nReturns\n-------\n    The sum."
	f := Parse(model.NumPy, text)
	assert.Equal(t, []string{"x", "y"}, f.Names())
	assert.Equal(t, "int", f.Params[1].Type)
	require.NotNil(t, f.Returns)
	assert.Equal(t, "", f.Returns.Type)
	assert.Equal(t, "The sum.", f.Returns.Desc)
}

func TestParseReSTInlineType(t *testing.T) {
	t.Parallel()
	f := Parse(model.ReST, "Add.\n\n:type x: int\n:param x: First.\n:param str y: Second,\n    continued.")
	require.Len(t, f.Params, 2)
	assert.Equal(t, Param{Name: "x", Type: "int", Desc: "First."}, f.Params[0])
	assert.Equal(t, Param{Name: "y", Type: "str", Desc: "Second,\ncontinued."}, f.Params[1])
}

func TestSummary(t *testing.T) {
	t.Parallel()
	s, n := Summary("First line\ncontinues here.\n\nBody.")
	assert.Equal(t, "First line continues here.", s)
	assert.Equal(t, 2, n)

	s, n = Summary("")
	assert.Equal(t, "", s)
	assert.Equal(t, 0, n)

	s, n = Summary("Do it.\nArgs:\n    x: X.")
	assert.Equal(t, "Do it.", s)
	assert.Equal(t, 1, n)
}

func TestParseGoogleReturnType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		entry    string
		wantType string
		wantDesc string
	}{
		{"plain", "bool: True when valid.", "bool", "True when valid."},
		{"generic", "dict[str, int]: Counts by name.", "dict[str, int]", "Counts by name."},
		{"union", "int | None: The index.", "int | None", "The index."},
		{"prose with colon", "True when valid: otherwise False.", "", "True when valid: otherwise False."},
		{"prose", "The value of the thing: see above.", "", "The value of the thing: see above."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Parse(model.Google, "Check it.\n\nReturns:\n    "+tt.entry)
			require.NotNil(t, f.Returns)
			assert.Equal(t, tt.wantType, f.Returns.Type)
			assert.Equal(t, tt.wantDesc, f.Returns.Desc)
		})
	}
}

func TestParseResponseKeepsReturnProse(t *testing.T) {
	t.Parallel()
	sig := &model.CallableSignature{Name: "check", QualifiedName: "check", Kind: model.Function, Returns: "bool"}
	resp, err := ParseResponse("Check it.\n\nReturns:\n    True when valid: otherwise False.", sig, model.Google)
	require.NoError(t, err)
	assert.Equal(t, "Check it.\n\nReturns:\n    bool: True when valid: otherwise False.", resp.Text)
}

func TestParseResponseDropsReceiver(t *testing.T) {
	t.Parallel()
	sig := &model.CallableSignature{
		Name:          "m",
		QualifiedName: "A.m",
		Kind:          model.Method,
		Params:        []model.Parameter{{Name: "self"}, {Name: "x"}},
	}
	resp, err := ParseResponse("Do it.\n\nArgs:\n    self: The instance.\n    x: X.", sig, model.Google)
	require.NoError(t, err)
	assert.Equal(t, "Do it.\n\nArgs:\n    x: X.", resp.Text)

	static := *sig
	static.Decorators = []string{"staticmethod"}
	_, err = ParseResponse("Do it.\n\nArgs:\n    x: X.", &static, model.Google)
	assert.True(t, errors.Is(err, ErrMalformedResponse), "self is an ordinary parameter of a static method")
}

func TestPromptDeterministic(t *testing.T) {
	t.Parallel()
	sig := areaSig()
	p1 := Prompt(sig, model.Google, "")
	p2 := Prompt(sig, model.Google, "")
	assert.Equal(t, p1, p2)

	assert.Contains(t, p1, "Write a Google style docstring for the Python function below.")
	assert.Contains(t, p1, "Signature: calculate_area(length: float, width: float) -> float")
	assert.Contains(t, p1, `under "Args:", and no others: length, width.`)
	assert.Contains(t, p1, "return length * width")
	assert.NotContains(t, p1, "Improve this existing docstring")

	skel, ok := SkeletonOf(p1)
	require.True(t, ok)
	assert.Equal(t, Render(model.Google, Skeleton(sig)), skel)

	improved := Prompt(sig, model.NumPy, "Old text.")
	assert.Contains(t, improved, "Improve this existing docstring, keeping what is accurate:\nOld text.")
	assert.Contains(t, improved, "Parameters\n----------\nlength : float")
}

func TestParseResponseEnvelope(t *testing.T) {
	t.Parallel()
	raw := "DOCSTRING:\n```python\n\"\"\"calculate the area of a rectangle\n\n" +
		"Args:\n    width: The width.\n    length (int): The length.\n\n" +
		"Returns:\n    The area.\n\"\"\"\n```\n\n" +
		"FIXED_CODE:\nNo fixes needed\n\nERRORS_FOUND:\n- Negative sides are not rejected.\n"

	resp, err := ParseResponse(raw, areaSig(), model.Google)
	require.NoError(t, err)
	want := `Calculate the area of a rectangle.

Args:
    length (float): The length.
    width (float): The width.

Returns:
    float: The area.`
	assert.Equal(t, want, resp.Text)
	assert.Equal(t, []string{"Negative sides are not rejected."}, resp.Notes)
}

func TestParseResponseNoNotes(t *testing.T) {
	t.Parallel()
	raw := "DOCSTRING:\nDo it.\n\nFIXED_CODE:\nNo fixes needed\n\nERRORS_FOUND:\nNone"
	sig := &model.CallableSignature{Name: "f", QualifiedName: "f", Kind: model.Function}
	resp, err := ParseResponse(raw, sig, model.Google)
	require.NoError(t, err)
	assert.Equal(t, "Do it.", resp.Text)
	assert.Empty(t, resp.Notes)
}

func TestParseResponseConvertsStyle(t *testing.T) {
	t.Parallel()
	raw := "Compute it.\n\nArgs:\n    length: L.\n    width: W.\n\nReturns:\n    float: Area."
	resp, err := ParseResponse(raw, areaSig(), model.ReST)
	require.NoError(t, err)
	assert.Equal(t, "Compute it.\n\n:param length: L.\n:type length: float\n:param width: W.\n:type width: float\n\n:returns: Area.\n:rtype: float", resp.Text)
}

func TestParseResponseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "   \n", ErrEmptyResponse},
		{"only fences", "```python\n```", ErrEmptyResponse},
		{"only quotes", `""""""`, ErrEmptyResponse},
		{"missing param", "Do it.\n\nArgs:\n    length: L.\n\nReturns:\n    float: A.", ErrMalformedResponse},
		{"extra param", "Do it.\n\nArgs:\n    length: L.\n    width: W.\n    height: H.\n\nReturns:\n    A.", ErrMalformedResponse},
		{"missing returns", "Do it.\n\nArgs:\n    length: L.\n    width: W.", ErrMalformedResponse},
		{"no summary", "Args:\n    length: L.\n    width: W.\n\nReturns:\n    A.", ErrMalformedResponse},
		{"placeholder", "<one-line summary>.\n\nArgs:\n    length: L.\n    width: W.\n\nReturns:\n    A.", ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseResponse(tt.raw, areaSig(), model.Google)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseResponseClassAllowsArgs(t *testing.T) {
	t.Parallel()
	sig := &model.CallableSignature{Name: "Point", QualifiedName: "Point", Kind: model.Class}
	resp, err := ParseResponse("A point.\n\nArgs:\n    x: X.", sig, model.Google)
	require.NoError(t, err)
	assert.Equal(t, "A point.\n\nArgs:\n    x: X.", resp.Text)
}

func TestSentence(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Return x.", sentence("return x"))
	assert.Equal(t, "Is it?", sentence("is it?"))
	assert.Equal(t, "", sentence("  "))
	assert.Equal(t, "Compute the following.", sentence("compute the following:"))
	assert.Equal(t, "Stop.", sentence("stop;"))
}
