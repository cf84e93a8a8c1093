package backend

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/phobologic/pydocgen/internal/style"
)

// Skeleton fills the prompt's skeleton with neutral text. It needs no
// network and produces docstrings that satisfy the structural rules, for
// scaffolding and for dry runs.
type Skeleton struct{}

func (Skeleton) Name() string { return "skeleton" }

func (Skeleton) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	skel, ok := style.SkeletonOf(prompt)
	if !ok {
		return "", &Error{Kind: KindRequest, Err: errors.New("prompt carries no skeleton")}
	}
	name := "this callable"
	for _, line := range strings.Split(prompt, "\n") {
		if v, ok := strings.CutPrefix(line, "Name: "); ok {
			name = v
			break
		}
	}
	r := strings.NewReplacer(
		style.SummaryPlaceholder, "Document "+name+".",
		style.DescPlaceholder, "TODO.",
	)
	return r.Replace(skel), nil
}
