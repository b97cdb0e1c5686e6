package responder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/w-h-a/chatter/generator"
	"github.com/w-h-a/chatter/retriever"
	sessionstore "github.com/w-h-a/chatter/session_store"
	"github.com/w-h-a/chatter/util/text"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoResults
	OutcomeFailure
)

const (
	InvalidQueryText = "Please enter a valid query."
	NoResultsText    = "Sorry, I couldn't find any relevant news for that query."
	FailureText      = "Sorry, I ran into a problem answering that. Please try again in a moment."
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) []retriever.Document
}

type HistoryProvider interface {
	History(ctx context.Context, id string, limit int) ([]sessionstore.Message, error)
}

type Response struct {
	Text          string
	Sources       []sessionstore.Source
	RetrievedDocs int
	Outcome       Outcome
}

// Responder mediates between retrieval and generation. It never returns an
// error: every failure degrades to a fixed user-visible text, and the
// Outcome field tells callers which of ok, no-results, or upstream-failure
// actually happened.
type Responder struct {
	options   Options
	retriever Retriever
	history   HistoryProvider
	generator generator.Generator
}

func (r *Responder) Respond(ctx context.Context, query string, sessionId string) Response {
	if text.Blank(query) {
		return Response{
			Text:    InvalidQueryText,
			Sources: []sessionstore.Source{},
			Outcome: OutcomeNoResults,
		}
	}

	documents := r.retriever.Retrieve(ctx, query)

	if len(documents) == 0 {
		return Response{
			Text:    NoResultsText,
			Sources: []sessionstore.Source{},
			Outcome: OutcomeNoResults,
		}
	}

	history, err := r.history.History(ctx, sessionId, r.options.HistoryLimit)
	if err != nil {
		slog.Error("failed to fetch history",
			slog.String("session_id", sessionId),
			slog.String("error", err.Error()),
		)
		return r.failure()
	}

	prompt := BuildPrompt(query, BuildContext(documents), history)

	genCtx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	answer, err := r.generator.Generate(genCtx, prompt)
	if err != nil || len(strings.TrimSpace(answer)) == 0 {
		slog.Error("generation failed",
			slog.String("session_id", sessionId),
			slog.Any("error", err),
		)
		return r.failure()
	}

	sources := lo.UniqBy(
		lo.Map(documents, func(doc retriever.Document, _ int) sessionstore.Source {
			return sessionstore.Source{
				Title:       doc.Title,
				URL:         doc.URL,
				Source:      doc.Source,
				PublishedAt: doc.PublishedAt,
			}
		}),
		func(src sessionstore.Source) string { return src.URL },
	)

	return Response{
		Text:          strings.TrimSpace(answer),
		Sources:       sources,
		RetrievedDocs: len(documents),
		Outcome:       OutcomeOK,
	}
}

func (r *Responder) failure() Response {
	return Response{
		Text:    FailureText,
		Sources: []sessionstore.Source{},
		Outcome: OutcomeFailure,
	}
}

func New(re Retriever, hi HistoryProvider, ge generator.Generator, opts ...Option) *Responder {
	options := NewOptions(opts...)

	if re == nil {
		panic("retriever is required")
	}

	if hi == nil {
		panic("history provider is required")
	}

	if ge == nil {
		panic("generator is required")
	}

	return &Responder{
		options:   options,
		retriever: re,
		history:   hi,
		generator: ge,
	}
}
