// Package adjudicator consults the remote classifier for a final verdict on
// each document and guarantees a verdict even when the classifier fails.
//
// Classifier calls return an Outcome. Every failure (transport, unparseable
// output, schema violation, expired deadline) becomes an Err outcome, and the
// engine-specific fallback policy turns it into a Verdict in exactly one
// place. Adjudicate therefore never returns an error.
package adjudicator

import (
	"context"
	"fmt"

	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/types"
)

// Outcome is either a classifier verdict or a classified failure.
type Outcome struct {
	verdict types.Verdict
	err     *types.Error
}

// Ok wraps a successful classifier verdict
func Ok(v types.Verdict) Outcome {
	return Outcome{verdict: v}
}

// Err wraps a failure of the given kind
func Err(kind types.ErrorKind, err error, format string, args ...any) Outcome {
	return Outcome{err: types.NewError(kind, err, format, args...)}
}

// IsOk reports whether the classifier produced a usable verdict
func (o Outcome) IsOk() bool {
	return o.err == nil
}

// Verdict returns the classifier verdict, or the failure if there is none.
func (o Outcome) Verdict() (types.Verdict, error) {
	if o.err != nil {
		return types.Verdict{}, o.err
	}
	return o.verdict, nil
}

// Err returns the failure, or nil for an Ok outcome
func (o Outcome) Err() error {
	if o.err == nil {
		return nil
	}
	return o.err
}

// Kind returns the failure kind, or "" for an Ok outcome
func (o Outcome) Kind() types.ErrorKind {
	if o.err == nil {
		return ""
	}
	return o.err.Kind
}

func (o Outcome) String() string {
	if o.err != nil {
		return fmt.Sprintf("Err(%s)", o.err.Error())
	}
	return fmt.Sprintf("Ok(%s %.0f %s)", o.verdict.Flag, o.verdict.Confidence, o.verdict.SuggestedAction)
}

// complete runs one classifier call through the scheduler, if any.
func complete(ctx context.Context, sched *scheduler.Scheduler, classifier ai.Classifier, operation, prompt string) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = classifier.Complete(ctx, operation, prompt)
		return err
	}
	var err error
	if sched == nil {
		err = call(ctx)
	} else {
		err = sched.Do(ctx, call)
	}
	return text, err
}
