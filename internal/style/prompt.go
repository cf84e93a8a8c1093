package style

import (
	"fmt"
	"strings"

	"github.com/phobologic/pydocgen/internal/model"
)

// Markers delimiting the rendered skeleton inside a prompt.
const (
	SkeletonStart = "--- skeleton ---"
	SkeletonEnd   = "--- end skeleton ---"
)

// Placeholders used in skeletons.
const (
	SummaryPlaceholder = "<one-line summary>."
	DescPlaceholder    = "<description>"
)

// maxSourceLines bounds the code included in a prompt.
const maxSourceLines = 200

// Skeleton builds the fact set a docstring for sig must cover, with
// placeholder text where prose belongs.
func Skeleton(sig *model.CallableSignature) *Facts {
	f := &Facts{Summary: SummaryPlaceholder}
	for _, p := range sig.DocumentedParams() {
		f.Params = append(f.Params, Param{Name: p.Display(), Type: p.Type, Desc: DescPlaceholder})
	}
	if sig.ReturnsDocumented() {
		f.Returns = &Return{Type: sig.Returns, Desc: DescPlaceholder, Yields: sig.Generator}
	}
	for _, exc := range sig.Raises {
		f.Raises = append(f.Raises, Raise{Type: exc, Desc: DescPlaceholder})
	}
	return f
}

// Prompt builds the deterministic generation prompt for sig. existing is
// the docstring to improve, or "" for a fresh one.
func Prompt(sig *model.CallableSignature, st model.Style, existing string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a %s style docstring for the Python %s below.\n\n", st.Title(), sig.Kind)
	fmt.Fprintf(&b, "Name: %s\n", sig.QualifiedName)
	fmt.Fprintf(&b, "Signature: %s\n", sig.Signature)
	if len(sig.Decorators) > 0 {
		fmt.Fprintf(&b, "Decorators: %s\n", strings.Join(sig.Decorators, ", "))
	}
	if sig.Async {
		b.WriteString("Async: yes\n")
	}

	b.WriteString("\nRequirements:\n")
	reqs := []string{
		"Follow PEP 257.",
		"The first line is a one-line summary in the imperative mood, starting with a capital letter and ending with a period.",
		"If there is more than the summary, leave exactly one blank line after it.",
	}
	if params := sig.DocumentedParams(); len(params) > 0 {
		names := make([]string, 0, len(params))
		for _, p := range params {
			names = append(names, p.Display())
		}
		reqs = append(reqs, fmt.Sprintf("Document every parameter under %q, and no others: %s.",
			firstLine(Header(st, SectionParams, false)), strings.Join(names, ", ")))
	}
	if sig.ReturnsDocumented() {
		verb := "returned"
		if sig.Generator {
			verb = "yielded"
		}
		reqs = append(reqs, fmt.Sprintf("Describe the %s value (%s) under %q.",
			verb, sig.Returns, firstLine(Header(st, SectionReturns, sig.Generator))))
	}
	if len(sig.Raises) > 0 {
		reqs = append(reqs, fmt.Sprintf("List the raised exceptions under %q: %s.",
			firstLine(Header(st, SectionRaises, false)), strings.Join(sig.Raises, ", ")))
	}
	if sig.Kind == model.Class {
		reqs = append(reqs, "Describe what the class represents; the body is shown for context.")
	}
	for i, r := range reqs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}

	b.WriteString("\nFill in this skeleton:\n")
	b.WriteString(SkeletonStart + "\n")
	b.WriteString(Render(st, Skeleton(sig)))
	b.WriteString("\n" + SkeletonEnd + "\n")

	b.WriteString("\nCode:\n```python\n")
	b.WriteString(truncateLines(sig.Source, maxSourceLines))
	b.WriteString("\n```\n")

	if existing != "" {
		b.WriteString("\nImprove this existing docstring, keeping what is accurate:\n")
		b.WriteString(existing)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with the docstring text only, without quotes or code fences.\n")
	return b.String()
}

// SkeletonOf extracts the skeleton block from a prompt built by Prompt.
func SkeletonOf(prompt string) (string, bool) {
	_, after, ok := strings.Cut(prompt, SkeletonStart+"\n")
	if !ok {
		return "", false
	}
	body, _, ok := strings.Cut(after, "\n"+SkeletonEnd)
	return body, ok
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n    ..."
}
