package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/services/llm"
)

const (
	maxTitleRunes       = 80
	maxDescriptionRunes = 300
	maxTags             = 10
)

const titleSystemPrompt = `You rewrite video series titles so they are engaging, click-worthy and search friendly.
Keep the original meaning. Use emotional, punchy language. Keep it under 80 characters.
Return JSON only: {"text": "<rewritten title>"}`

const descriptionSystemPrompt = `You rewrite video series descriptions so they hook the viewer.
Highlight the key conflicts and themes and create curiosity. Keep the original meaning.
Keep it under 300 characters.
Return JSON only: {"text": "<rewritten description>"}`

const tagsSystemPrompt = `You produce search tags for a short drama video.
Return between 3 and 10 short lowercase tags without the # character.
Return JSON only: {"tags": ["tag one", "tag two"]}`

// Completer is the subset of the LLM client used for enrichment.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLM enriches text through a chat completion API.
type LLM struct {
	client     Completer
	paraphrase bool
	tags       bool
	logger     *slog.Logger
}

// NewLLM builds an LLM enricher. Either capability may be disabled, in
// which case it behaves like Noop.
func NewLLM(client Completer, paraphrase, tags bool, logger *slog.Logger) *LLM {
	return &LLM{
		client:     client,
		paraphrase: paraphrase,
		tags:       tags,
		logger:     logging.NewComponentLogger(logger, "enrich"),
	}
}

// NewFromConfig returns an LLM enricher when an API key is configured and
// at least one capability is enabled, otherwise Noop.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Enricher {
	if cfg == nil || !cfg.EnrichmentEnabled() {
		return Noop{}
	}
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return NewLLM(client, cfg.Enrichment.Paraphrase, cfg.Enrichment.Tags, logger)
}

type textResponse struct {
	Text string `json:"text"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Paraphrase rewrites text, falling back to the original on any failure.
func (e *LLM) Paraphrase(ctx context.Context, text string, kind Kind) string {
	if !e.paraphrase || strings.TrimSpace(text) == "" {
		return text
	}
	system, limit := titleSystemPrompt, maxTitleRunes
	label := "title"
	if kind == KindDescription {
		system, limit = descriptionSystemPrompt, maxDescriptionRunes
		label = "description"
	}
	user := fmt.Sprintf("Original %s: %q", label, text)

	content, err := e.client.CompleteJSON(ctx, system, user)
	if err != nil {
		e.warn(ctx, "paraphrase failed; keeping original text", "paraphrase_failed", kind, err)
		return text
	}
	var resp textResponse
	if err := llm.DecodeJSON(content, &resp); err != nil {
		e.warn(ctx, "paraphrase response unreadable; keeping original text", "paraphrase_failed", kind, err)
		return text
	}
	out := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if out == "" {
		return text
	}
	return truncateRunes(out, limit)
}

// Tags returns comma-separated tags, or "" on any failure.
func (e *LLM) Tags(ctx context.Context, title, description string) string {
	if !e.tags || strings.TrimSpace(title) == "" {
		return ""
	}
	user := fmt.Sprintf("Title: %s\nDescription: %s", title, description)
	content, err := e.client.CompleteJSON(ctx, tagsSystemPrompt, user)
	if err != nil {
		e.warn(ctx, "tag generation failed; publishing without tags", "tags_failed", "tags", err)
		return ""
	}
	var resp tagsResponse
	if err := llm.DecodeJSON(content, &resp); err != nil {
		e.warn(ctx, "tag response unreadable; publishing without tags", "tags_failed", "tags", err)
		return ""
	}
	return JoinTags(resp.Tags)
}

func (e *LLM) warn(ctx context.Context, msg, event string, kind Kind, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), msg, event,
		logging.String("kind", string(kind)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check llm api key, model and quota"),
		logging.String(logging.FieldImpact, "metadata published without enrichment"),
	)
}

// JoinTags normalizes tags and joins them with commas. Blank entries,
// leading '#' and case-insensitive duplicates are dropped.
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		tag = strings.ReplaceAll(tag, ",", " ")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return strings.Join(out, ",")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
