package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/cache"
	"github.com/doclantern/doclantern/internal/docs"
	"github.com/doclantern/doclantern/internal/schema"
	"github.com/doclantern/doclantern/internal/session"
)

// fakeProvider replays scripted responses in order. The last response is
// repeated once the script runs out.
type fakeProvider struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeProvider) Chat(_ context.Context, _ schema.Messages, _ schema.ChatOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeProvider) DefaultModel() string { return "fake-model" }

// fakeDocs records the order of backend calls.
type fakeDocs struct {
	resolveErr error
	resolved   docs.ResolvedLibrary
	queryErr   error
	snippets   []docs.Snippet
	calls      []string
}

func (f *fakeDocs) ResolveLibraryID(_ context.Context, q docs.LibraryQuery) (docs.ResolvedLibrary, error) {
	f.calls = append(f.calls, "resolve:"+q.Name)
	if f.resolveErr != nil {
		return docs.ResolvedLibrary{}, f.resolveErr
	}
	return f.resolved, nil
}

func (f *fakeDocs) QueryDocs(_ context.Context, lib docs.ResolvedLibrary, _ string) ([]docs.Snippet, error) {
	f.calls = append(f.calls, "query:"+lib.ID)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.snippets, nil
}

func newTestOrchestrator(p schema.LLMProvider, dc DocsClient, rc *cache.ResolveCache) *Orchestrator {
	settings := schema.Settings{Model: "test-model", MaxTokens: 512, Temperature: 0.2, MemoryWindow: 10}
	return New(bus.NewMessageBus(8), p, dc, rc, session.NewStore(time.Hour), DefaultSystemPrompt(), settings)
}

func TestProcess_DirectQuestionMakesNoToolCalls(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"direct"}`, "Four."}}
	dc := &fakeDocs{}
	o := newTestOrchestrator(p, dc, nil)

	a := o.Process(context.Background(), "what is 2+2?", "cli:t")

	if a.Text != "Four." {
		t.Errorf("text = %q", a.Text)
	}
	if len(a.Invocations) != 0 {
		t.Errorf("direct answers must make zero tool calls, got %v", a.Invocations)
	}
	if len(dc.calls) != 0 {
		t.Errorf("backend was called: %v", dc.calls)
	}
}

func TestProcess_LookupResolvesBeforeQuerying(t *testing.T) {
	p := &fakeProvider{responses: []string{
		`{"action":"lookup","library":"requests"}`,
		"Use requests.post with the timeout kwarg.",
	}}
	dc := &fakeDocs{
		resolved: docs.ResolvedLibrary{ID: "/psf/requests", Name: "requests", Score: 0.97},
		snippets: []docs.Snippet{{Content: "timeout=...", Source: "docs/advanced.md"}},
	}
	o := newTestOrchestrator(p, dc, nil)

	a := o.Process(context.Background(), "how do I set a timeout in the requests library?", "cli:t")

	want := []string{"resolve:requests", "query:/psf/requests"}
	if len(dc.calls) != 2 || dc.calls[0] != want[0] || dc.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", dc.calls, want)
	}
	if len(a.Invocations) != 2 {
		t.Fatalf("invocations = %v", a.Invocations)
	}
	if a.Invocations[0].Tool != "resolve-library-id" || a.Invocations[1].Tool != "query-docs" {
		t.Errorf("invocation order wrong: %v", a.Invocations)
	}
	if !strings.Contains(a.Text, "requests.post") {
		t.Errorf("text = %q", a.Text)
	}
}

func TestProcess_NoQueryAfterResolveFailure(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"lookup","library":"nonexist"}`}}
	dc := &fakeDocs{resolveErr: &docs.NotFoundError{Subject: "nonexist"}}
	o := newTestOrchestrator(p, dc, nil)

	a := o.Process(context.Background(), "docs for nonexist please", "cli:t")

	for _, call := range dc.calls {
		if strings.HasPrefix(call, "query:") {
			t.Fatalf("documentation was queried after a failed resolve: %v", dc.calls)
		}
	}
	if !strings.Contains(a.Text, "nonexist") {
		t.Errorf("user message should name the library, got %q", a.Text)
	}
	if len(a.Invocations) != 1 || a.Invocations[0].Err == "" {
		t.Errorf("expected one failed resolve invocation, got %v", a.Invocations)
	}
}

func TestProcess_AmbiguityAsksForClarification(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"lookup","library":"http"}`}}
	dc := &fakeDocs{resolveErr: &docs.AmbiguousMatchError{
		Name: "http",
		Candidates: []docs.ResolvedLibrary{
			{ID: "/golang/net-http", Name: "net/http"},
			{ID: "/nodejs/http", Name: "node:http"},
		},
	}}
	o := newTestOrchestrator(p, dc, nil)

	a := o.Process(context.Background(), "http library docs", "cli:t")

	if !strings.Contains(a.Text, "net/http") || !strings.Contains(a.Text, "node:http") {
		t.Errorf("clarification should list candidates, got %q", a.Text)
	}
	for _, call := range dc.calls {
		if strings.HasPrefix(call, "query:") {
			t.Fatalf("ambiguity must not lead to a query: %v", dc.calls)
		}
	}
}

func TestProcess_UpstreamFailureIsFriendly(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"lookup","library":"gin"}`}}
	dc := &fakeDocs{resolveErr: &docs.UpstreamUnavailableError{Err: errors.New("dial tcp: refused")}}
	o := newTestOrchestrator(p, dc, nil)

	a := o.Process(context.Background(), "gin docs", "cli:t")

	if strings.Contains(a.Text, "dial tcp") {
		t.Errorf("internal error leaked to the user: %q", a.Text)
	}
	if !strings.Contains(a.Text, "try again") {
		t.Errorf("text = %q", a.Text)
	}
}

func TestProcess_CachedResolveSkipsBackend(t *testing.T) {
	rc, err := cache.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	p := &fakeProvider{responses: []string{
		`{"action":"lookup","library":"cobra"}`,
		"Answer one.",
		`{"action":"lookup","library":"cobra"}`,
		"Answer two.",
	}}
	dc := &fakeDocs{
		resolved: docs.ResolvedLibrary{ID: "/spf13/cobra", Name: "cobra", Score: 0.99},
		snippets: []docs.Snippet{{Content: "cmd.Flags()", Source: "user_guide.md"}},
	}
	o := newTestOrchestrator(p, dc, rc)

	o.Process(context.Background(), "cobra library flags?", "cli:t")
	a := o.Process(context.Background(), "cobra library subcommands?", "cli:t")

	resolves := 0
	for _, call := range dc.calls {
		if strings.HasPrefix(call, "resolve:") {
			resolves++
		}
	}
	if resolves != 1 {
		t.Fatalf("expected exactly one backend resolve, got %d (%v)", resolves, dc.calls)
	}
	if !a.Invocations[0].Cached {
		t.Errorf("second resolve should be served from cache: %+v", a.Invocations[0])
	}
}

func TestProcess_SessionHistoryGrows(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"direct"}`, "Hello there."}}
	o := newTestOrchestrator(p, &fakeDocs{}, nil)

	o.Process(context.Background(), "hi", "telegram:7")

	sess := o.sessions.GetOrCreate("telegram:7")
	h := sess.History(0)
	if len(h.Messages) != 2 {
		t.Fatalf("expected one exchange in history, got %d messages", len(h.Messages))
	}
	if h.Messages[1].Content != "Hello there." {
		t.Errorf("assistant reply not recorded: %q", h.Messages[1].Content)
	}
}

func TestDispatch_Commands(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"action":"direct"}`, "ok"}}
	o := newTestOrchestrator(p, &fakeDocs{}, nil)

	msg := func(text string) bus.InboundMessage {
		return bus.NewInboundMessage("telegram", "u1", "7", text)
	}

	if got := o.dispatch(context.Background(), msg("/help")); !strings.Contains(got, "/new") {
		t.Errorf("/help output = %q", got)
	}
	if got := o.dispatch(context.Background(), msg("/start")); !strings.Contains(got, "documentation assistant") {
		t.Errorf("/start output = %q", got)
	}
	if got := o.dispatch(context.Background(), msg("   ")); got != msgEmptyInput {
		t.Errorf("empty input output = %q", got)
	}

	sess := o.sessions.GetOrCreate("telegram:7")
	sess.AddExchange("q", "a")
	o.dispatch(context.Background(), msg("/new"))
	if o.sessions.Len() != 0 {
		t.Error("/new must invalidate the session")
	}
}

func TestDecide_FallsBackToHeuristicOnProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("provider down")}
	o := newTestOrchestrator(p, &fakeDocs{}, nil)

	d := o.decide(context.Background(), "how does the requests library handle redirects?")
	if d.Kind != NeedsLookup || d.Query.Name != "requests" {
		t.Errorf("decision = %+v", d)
	}
}
