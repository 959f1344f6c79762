// Package orchestrator routes each incoming question through an explicit
// pipeline: classify, resolve the library, fetch documentation, synthesize
// the answer. The resolve-then-query ordering is plain sequential code, so
// a failed resolution can never be followed by a documentation query.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doclantern/doclantern/internal/bus"
	"github.com/doclantern/doclantern/internal/cache"
	"github.com/doclantern/doclantern/internal/docs"
	"github.com/doclantern/doclantern/internal/schema"
	"github.com/doclantern/doclantern/internal/session"
	"github.com/doclantern/doclantern/internal/shared/textutils"
)

// DocsClient is the slice of the documentation backend the orchestrator
// needs. *docs.Client satisfies it; tests substitute fakes.
type DocsClient interface {
	ResolveLibraryID(ctx context.Context, q docs.LibraryQuery) (docs.ResolvedLibrary, error)
	QueryDocs(ctx context.Context, lib docs.ResolvedLibrary, question string) ([]docs.Snippet, error)
}

// ToolInvocation records one backend call made while answering, for audit
// logging and the /status surface.
type ToolInvocation struct {
	Tool     string
	Argument string
	Cached   bool
	Err      string
}

// Answer is the result of processing one question.
type Answer struct {
	Text        string
	Invocations []ToolInvocation
}

// User-facing fallback texts. Error details stay in the logs.
const (
	msgNotFound   = "I couldn't find a library called %q. Check the spelling, or tell me more about what it does."
	msgUpstream   = "The documentation service isn't reachable right now. Please try again in a moment."
	msgLLMFailure = "I couldn't generate an answer right now. Please try again in a moment."
	msgEmptyInput = "Send me a question and I'll look it up."

	helpText = `I answer questions about software libraries using their official docs.

Ask me things like:
  "How do I set a timeout in the requests library?"
  "Show me cobra docs for flag parsing"

Commands:
  /new   start a fresh conversation
  /help  show this message`

	startText = "Hi! I'm a documentation assistant. Ask me about any software library and I'll look up its docs.\n\nTry /help for examples."
)

// perMessageTimeout bounds one full pipeline run, including retries inside
// the docs client.
const perMessageTimeout = 2 * time.Minute

// Orchestrator consumes inbound messages, runs the pipeline, and publishes
// replies.
type Orchestrator struct {
	bus      bus.Bus
	provider schema.LLMProvider
	docs     DocsClient
	cache    *cache.ResolveCache // nil when caching is disabled
	sessions *session.Store
	prompt   *SystemPrompt
	settings schema.Settings
}

func New(b bus.Bus, provider schema.LLMProvider, dc DocsClient, rc *cache.ResolveCache, sessions *session.Store, prompt *SystemPrompt, settings schema.Settings) *Orchestrator {
	if prompt == nil {
		prompt = DefaultSystemPrompt()
	}
	return &Orchestrator{
		bus:      b,
		provider: provider,
		docs:     dc,
		cache:    rc,
		sessions: sessions,
		prompt:   prompt,
		settings: settings,
	}
}

// Run consumes the inbound channel until ctx is cancelled. Each message is
// handled on its own goroutine so one slow lookup doesn't stall the rest.
func (o *Orchestrator) Run(ctx context.Context) error {
	slog.Info("orchestrator started", "model", o.settings.Model)
	for {
		select {
		case <-ctx.Done():
			slog.Info("orchestrator stopped")
			return ctx.Err()
		case msg := <-o.bus.InboundChan():
			go o.handleMessage(ctx, msg)
		}
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	ctx, cancel := context.WithTimeout(ctx, perMessageTimeout)
	defer cancel()

	slog.Info("inbound message",
		"channel", msg.Channel(), "sender", msg.SenderId(), "preview", msg.Preview())

	text := o.dispatch(ctx, msg)

	reply := bus.NewOutboundMessage(msg.Channel(), msg.ChatId(), text)
	if md := msg.Metadata(); md != nil {
		reply.SetMetadata(md)
	}
	o.bus.PublishOutbound(reply)
}

// dispatch handles slash commands and routes everything else to Process.
func (o *Orchestrator) dispatch(ctx context.Context, msg bus.InboundMessage) string {
	content := strings.TrimSpace(msg.Content())
	switch {
	case content == "":
		return msgEmptyInput
	case content == "/start":
		return startText
	case content == "/help":
		return helpText
	case content == "/new":
		o.sessions.Invalidate(msg.SessionKey())
		return "Started a fresh conversation."
	}

	answer := o.Process(ctx, content, msg.SessionKey())
	for _, inv := range answer.Invocations {
		slog.Info("tool invocation",
			"tool", inv.Tool, "arg", inv.Argument, "cached", inv.Cached, "err", inv.Err)
	}
	return answer.Text
}

// Process runs the full pipeline for one question and returns the answer
// together with the backend calls it made.
func (o *Orchestrator) Process(ctx context.Context, question, sessionKey string) Answer {
	sess := o.sessions.GetOrCreate(sessionKey)

	d := o.decide(ctx, question)
	var answer Answer
	if d.Kind == DirectAnswer {
		answer = o.answerDirect(ctx, sess, question)
	} else {
		answer = o.answerWithDocs(ctx, sess, question, d.Query)
	}

	sess.AddExchange(question, answer.Text)
	return answer
}

// answerDirect answers from the model alone. No backend call is made.
func (o *Orchestrator) answerDirect(ctx context.Context, sess *session.Session, question string) Answer {
	text, err := o.synthesize(ctx, sess, question, nil, docs.ResolvedLibrary{})
	if err != nil {
		slog.Error("direct answer failed", "err", err)
		return Answer{Text: msgLLMFailure}
	}
	return Answer{Text: text}
}

// answerWithDocs resolves the library, queries its documentation, and
// synthesizes an answer grounded in the returned snippets.
func (o *Orchestrator) answerWithDocs(ctx context.Context, sess *session.Session, question string, q docs.LibraryQuery) Answer {
	lib, resolveInv, err := o.resolveLibrary(ctx, q)
	invocations := []ToolInvocation{resolveInv}
	if err != nil {
		// Resolution failed: no documentation query may follow.
		return Answer{Text: resolveErrorText(q, err), Invocations: invocations}
	}

	snippets, err := o.docs.QueryDocs(ctx, lib, question)
	queryInv := ToolInvocation{Tool: "query-docs", Argument: lib.ID}
	if err != nil {
		queryInv.Err = err.Error()
		invocations = append(invocations, queryInv)
		return Answer{Text: queryErrorText(lib, err), Invocations: invocations}
	}
	invocations = append(invocations, queryInv)

	text, err := o.synthesize(ctx, sess, question, snippets, lib)
	if err != nil {
		slog.Error("synthesis failed", "library", lib.ID, "err", err)
		return Answer{Text: msgLLMFailure, Invocations: invocations}
	}
	return Answer{Text: text, Invocations: invocations}
}

// resolveLibrary checks the cache before going to the backend, and records
// the call either way. Cache failures degrade to a backend resolve.
func (o *Orchestrator) resolveLibrary(ctx context.Context, q docs.LibraryQuery) (docs.ResolvedLibrary, ToolInvocation, error) {
	inv := ToolInvocation{Tool: "resolve-library-id", Argument: q.Name}

	if o.cache != nil {
		lib, ok, err := o.cache.Get(ctx, q)
		if err != nil {
			slog.Warn("cache read failed", "key", cache.Key(q), "err", err)
		} else if ok {
			inv.Cached = true
			return lib, inv, nil
		}
	}

	lib, err := o.docs.ResolveLibraryID(ctx, q)
	if err != nil {
		inv.Err = err.Error()
		return docs.ResolvedLibrary{}, inv, err
	}

	if o.cache != nil {
		if err := o.cache.Put(ctx, q, lib); err != nil {
			slog.Warn("cache write failed", "key", cache.Key(q), "err", err)
		}
	}
	return lib, inv, nil
}

// synthesize asks the LLM for the final answer. When snippets are present
// they are injected as the only permitted source material.
func (o *Orchestrator) synthesize(ctx context.Context, sess *session.Session, question string, snippets []docs.Snippet, lib docs.ResolvedLibrary) (string, error) {
	msgs := schema.NewMessages(schema.NewSystemMessage(o.prompt.Body))
	msgs.Append(sess.History(o.settings.MemoryWindow))

	if len(snippets) > 0 {
		msgs.AddSystem(renderSnippets(lib, snippets))
	}
	msgs.AddUser(question)

	opts := schema.NewChatOptions(o.settings.Model, o.settings.MaxTokens, o.settings.Temperature)
	raw, err := o.provider.Chat(ctx, msgs, opts)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return textutils.StripThink(raw), nil
}

// renderSnippets formats the retrieved documentation for the model.
func renderSnippets(lib docs.ResolvedLibrary, snippets []docs.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documentation excerpts for %s (%s). Answer ONLY from these excerpts and cite sources.\n", lib.Name, lib.ID)
	for i, s := range snippets {
		fmt.Fprintf(&b, "\n--- excerpt %d (source: %s) ---\n%s\n", i+1, textutils.StringOrDefault(s.Source, "unknown"), s.Content)
	}
	return b.String()
}

// resolveErrorText converts a resolve failure into a user-facing message.
// Ambiguity becomes a clarification request listing the candidates.
func resolveErrorText(q docs.LibraryQuery, err error) string {
	var notFound *docs.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf(msgNotFound, q.Name)
	}

	var ambiguous *docs.AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		var b strings.Builder
		fmt.Fprintf(&b, "%q matches several libraries. Which one did you mean?\n", q.Name)
		for _, c := range ambiguous.Candidates {
			fmt.Fprintf(&b, "  • %s (%s)\n", c.Name, c.ID)
		}
		return b.String()
	}

	slog.Error("resolve failed", "library", q.Name, "err", err)
	return msgUpstream
}

// queryErrorText converts a documentation-query failure into a user-facing
// message. An honest "nothing found" beats a fabricated answer.
func queryErrorText(lib docs.ResolvedLibrary, err error) string {
	var notFound *docs.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("The %s docs don't seem to cover that. Try rephrasing, or ask about a different part of the library.", lib.Name)
	}

	slog.Error("query failed", "library", lib.ID, "err", err)
	return msgUpstream
}
