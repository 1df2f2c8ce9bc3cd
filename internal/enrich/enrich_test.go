package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reelcast/internal/testsupport"
)

type stubCompleter struct {
	content string
	err     error
	calls   int
	system  string
	user    string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.system = system
	s.user = user
	return s.content, s.err
}

func TestNoopPassesThrough(t *testing.T) {
	var e Enricher = Noop{}
	if got := e.Paraphrase(context.Background(), "Night Train", KindTitle); got != "Night Train" {
		t.Fatalf("unexpected paraphrase %q", got)
	}
	if got := e.Tags(context.Background(), "Night Train", "desc"); got != "" {
		t.Fatalf("expected no tags, got %q", got)
	}
}

func TestParaphraseUsesResponse(t *testing.T) {
	stub := &stubCompleter{content: "```json\n{\"text\": \"The Midnight Express: No Way Back\"}\n```"}
	e := NewLLM(stub, true, true, nil)
	got := e.Paraphrase(context.Background(), "Night Train", KindTitle)
	if got != "The Midnight Express: No Way Back" {
		t.Fatalf("unexpected paraphrase %q", got)
	}
	if !strings.Contains(stub.system, "80 characters") || !strings.Contains(stub.user, "Night Train") {
		t.Fatalf("unexpected prompts: %q / %q", stub.system, stub.user)
	}
}

func TestParaphraseTruncatesDescriptions(t *testing.T) {
	stub := &stubCompleter{content: `{"text": "` + strings.Repeat("ab ", 200) + `"}`}
	e := NewLLM(stub, true, false, nil)
	got := e.Paraphrase(context.Background(), "short intro", KindDescription)
	if len([]rune(got)) > maxDescriptionRunes {
		t.Fatalf("expected at most %d runes, got %d", maxDescriptionRunes, len([]rune(got)))
	}
	if !strings.Contains(stub.system, "300 characters") {
		t.Fatalf("expected description prompt, got %q", stub.system)
	}
}

func TestParaphraseFallsBackToOriginal(t *testing.T) {
	cases := []*stubCompleter{
		{err: errors.New("llm unavailable")},
		{content: "not json"},
		{content: `{"text": "   "}`},
	}
	for _, stub := range cases {
		e := NewLLM(stub, true, true, nil)
		if got := e.Paraphrase(context.Background(), "Night Train", KindTitle); got != "Night Train" {
			t.Fatalf("expected original text, got %q", got)
		}
	}
}

func TestParaphraseDisabledSkipsCall(t *testing.T) {
	stub := &stubCompleter{content: `{"text": "x"}`}
	e := NewLLM(stub, false, true, nil)
	if got := e.Paraphrase(context.Background(), "Night Train", KindTitle); got != "Night Train" {
		t.Fatalf("unexpected paraphrase %q", got)
	}
	if got := e.Paraphrase(context.Background(), "", KindTitle); got != "" {
		t.Fatalf("unexpected paraphrase %q", got)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no llm calls, got %d", stub.calls)
	}
}

func TestTagsJoinAndDegrade(t *testing.T) {
	stub := &stubCompleter{content: `{"tags": ["#drama", "Romance", "drama", " ", "revenge, love"]}`}
	e := NewLLM(stub, false, true, nil)
	if got := e.Tags(context.Background(), "Night Train", "desc"); got != "drama,Romance,revenge  love" {
		t.Fatalf("unexpected tags %q", got)
	}

	failing := NewLLM(&stubCompleter{err: errors.New("boom")}, true, true, nil)
	if got := failing.Tags(context.Background(), "Night Train", "desc"); got != "" {
		t.Fatalf("expected empty tags on failure, got %q", got)
	}
}

func TestNewFromConfigSelectsImplementation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, ok := NewFromConfig(cfg, nil).(Noop); !ok {
		t.Fatal("expected Noop without api key")
	}
	cfg = testsupport.NewConfig(t, testsupport.WithLLM("http://127.0.0.1:1/chat", "key"))
	if _, ok := NewFromConfig(cfg, nil).(*LLM); !ok {
		t.Fatal("expected LLM enricher with api key")
	}
	cfg.Enrichment.Paraphrase = false
	cfg.Enrichment.Tags = false
	if _, ok := NewFromConfig(cfg, nil).(Noop); !ok {
		t.Fatal("expected Noop when every capability is disabled")
	}
}
