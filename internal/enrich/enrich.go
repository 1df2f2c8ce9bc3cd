package enrich

import "context"

// Kind selects the paraphrase prompt.
type Kind string

const (
	KindTitle       Kind = "title"
	KindDescription Kind = "description"
)

// Paraphraser rewrites catalog text. Implementations return the input
// unchanged when they cannot produce a rewrite.
type Paraphraser interface {
	Paraphrase(ctx context.Context, text string, kind Kind) string
}

// Tagger produces comma-separated tags for a publish form. Implementations
// return "" when they cannot produce tags.
type Tagger interface {
	Tags(ctx context.Context, title, description string) string
}

// Enricher bundles both capabilities.
type Enricher interface {
	Paraphraser
	Tagger
}

// Noop is the enricher used when no LLM is configured.
type Noop struct{}

func (Noop) Paraphrase(_ context.Context, text string, _ Kind) string { return text }

func (Noop) Tags(context.Context, string, string) string { return "" }
