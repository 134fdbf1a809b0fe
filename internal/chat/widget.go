package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cleanchat/cleanchat/internal/moderation"
)

// ErrClosed is returned by Post once the widget loop has stopped.
var ErrClosed = errors.New("chat: widget closed")

// InputKind identifies a user action.
type InputKind int

const (
	InputDraft InputKind = iota // replace the draft
	InputSend                   // submit, optionally setting the draft first
)

// Input is one user action delivered to the widget loop.
type Input struct {
	Kind    InputKind
	Text    string
	HasText bool
}

// Settlement describes how a moderation call ended.
type Settlement struct {
	Ticket   Ticket
	Verdict  moderation.Verdict
	Err      error
	Took     time.Duration
	Filtered int
}

// Hooks observe the widget. Any of them may be nil. They run on the loop
// goroutine and must not block.
type Hooks struct {
	OnSubmit func(t Ticket)
	OnReject func(err error)
	OnSettle func(s Settlement)
}

// Sink receives a fresh view after every state change.
type Sink func(View)

// WidgetOption configures a Widget.
type WidgetOption func(*Widget)

// WithLogger sets the widget logger.
func WithLogger(l zerolog.Logger) WidgetOption {
	return func(w *Widget) { w.log = l }
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) WidgetOption {
	return func(w *Widget) { w.hooks = h }
}

// WithCallTimeout bounds each moderation call. Zero means no bound.
func WithCallTimeout(d time.Duration) WidgetOption {
	return func(w *Widget) { w.timeout = d }
}

type result struct {
	ticket  Ticket
	verdict moderation.Verdict
	err     error
	took    time.Duration
}

// Widget drives a Session from a single goroutine: it applies user inputs,
// issues moderation calls and pushes views to a sink.
type Widget struct {
	session    *Session
	classifier moderation.Classifier
	sink       Sink
	log        zerolog.Logger
	hooks      Hooks
	timeout    time.Duration

	inputs  chan Input
	results chan result
	done    chan struct{}
}

// NewWidget returns a widget for s. Run must be called to start it.
func NewWidget(s *Session, classifier moderation.Classifier, sink Sink, opts ...WidgetOption) *Widget {
	w := &Widget{
		session:    s,
		classifier: classifier,
		sink:       sink,
		log:        zerolog.Nop(),
		inputs:     make(chan Input),
		results:    make(chan result, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Post hands an input to the loop. It blocks until the loop accepts it, ctx
// ends, or the loop stops.
func (w *Widget) Post(ctx context.Context, in Input) error {
	select {
	case w.inputs <- in:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (w *Widget) Done() <-chan struct{} {
	return w.done
}

// Run pushes the initial view and then processes inputs and results until
// ctx is cancelled. Cancelling ctx also cancels an in-flight call.
func (w *Widget) Run(ctx context.Context) error {
	defer close(w.done)

	w.push()
	for {
		select {
		case <-ctx.Done():
			return nil

		case in := <-w.inputs:
			w.apply(ctx, in)

		case r := <-w.results:
			w.settle(r)
		}
	}
}

func (w *Widget) apply(ctx context.Context, in Input) {
	switch in.Kind {
	case InputDraft:
		w.session.SetDraft(in.Text)
		w.push()

	case InputSend:
		if in.HasText {
			w.session.SetDraft(in.Text)
		}
		t, err := w.session.Submit()
		if err != nil {
			w.log.Debug().Err(err).Msg("submit rejected")
			if w.hooks.OnReject != nil {
				w.hooks.OnReject(err)
			}
			if in.HasText {
				w.push()
			}
			return
		}
		if w.hooks.OnSubmit != nil {
			w.hooks.OnSubmit(t)
		}
		w.push()
		go w.check(ctx, t)
	}
}

func (w *Widget) check(ctx context.Context, t Ticket) {
	callCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := w.classifier.Check(callCtx, t.Text)
	r := result{ticket: t, verdict: v, err: err, took: time.Since(start)}

	select {
	case w.results <- r:
	case <-ctx.Done():
	}
}

func (w *Widget) settle(r result) {
	log := w.log.With().Str("message", r.ticket.MessageID).Logger()

	var err error
	if r.err != nil {
		log.Warn().Err(r.err).Dur("took", r.took).Msg("moderation call failed")
		err = w.session.Fail(r.ticket)
	} else {
		log.Debug().
			Bool("flagged", r.verdict.Flagged).
			Bool("model_flagged", r.verdict.ModelFlagged).
			Bool("keyword_flagged", r.verdict.KeywordFlagged).
			Dur("took", r.took).
			Msg("moderation verdict")
		err = w.session.Resolve(r.ticket, r.verdict)
	}
	if err != nil {
		log.Error().Err(err).Msg("apply moderation result")
		return
	}

	if w.hooks.OnSettle != nil {
		w.hooks.OnSettle(Settlement{
			Ticket:   r.ticket,
			Verdict:  r.verdict,
			Err:      r.err,
			Took:     r.took,
			Filtered: w.session.Filtered(),
		})
	}
	w.push()
}

func (w *Widget) push() {
	if w.sink != nil {
		w.sink(w.session.Render())
	}
}
