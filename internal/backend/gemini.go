package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	genai "google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini calls the Gemini API through the official genai client. It only
// performs the call; limiting, caching and logging are middleware.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini connects a Gemini generator. An empty apiKey yields a generator
// that reports KindUnconfigured on every call.
func NewGemini(ctx context.Context, apiKey, model string) (Generator, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if strings.TrimSpace(apiKey) == "" {
		return Unconfigured("gemini:"+model, "GEMINI_API_KEY is not set"), nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &Gemini{cli: cli, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{},
	)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// classify maps a genai error to a backend Error.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Err: err}
		}
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForStatus(apiErr.Code), Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return &Error{Kind: KindTransport, Err: err}
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindServer
	}
	return KindRequest
}
