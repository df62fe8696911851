package runner

import (
	"context"

	"github.com/ironsheep/timer-ocr-mcp/internal/duration"
	"github.com/ironsheep/timer-ocr-mcp/internal/imaging"
)

// Outcome is the result of one queued request. Duration is set when the
// request is labelled LabelTime and its text parsed.
type Outcome struct {
	Request  Request
	Result   Result
	Duration *duration.Duration
	ParseErr error
}

// Err returns the first failure recorded in o, if any.
func (o Outcome) Err() error {
	if o.Result.Err != nil {
		return o.Result.Err
	}
	return o.ParseErr
}

// Queue feeds requests to a Runner one at a time.
type Queue struct {
	runner *Runner
}

// NewQueue returns a queue that submits to r.
func NewQueue(r *Runner) *Queue {
	return &Queue{runner: r}
}

// Run processes reqs in order, waiting for each result before submitting the
// next. One failing request does not stop the others. If ctx is cancelled
// the in-flight task is stopped and awaited, and the requests not yet
// started fail with ctx.Err().
func (q *Queue) Run(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, 0, len(reqs))
	pending := reqs

	for len(pending) > 0 {
		req := pending[0]
		pending = pending[1:]

		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, failed(req, err))
			continue
		}
		outcomes = append(outcomes, q.process(ctx, req))
	}
	return outcomes
}

func (q *Queue) process(ctx context.Context, req Request) Outcome {
	if err := imaging.CheckAccess(req.ImagePath); err != nil {
		q.runner.log.Warn().Err(err).Str("label", req.Label).Msg("skipping OCR request")
		return failed(req, err)
	}

	ch, err := q.runner.Submit(ctx, req)
	if err != nil {
		return failed(req, err)
	}

	var res Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		q.runner.Stop()
		res = <-ch
	}
	// Let the worker finish cleanup so the next Submit sees Ready.
	_ = q.runner.Wait(context.Background())

	out := Outcome{Request: req, Result: res}
	if res.Success && req.Label == LabelTime && res.Text != nil {
		d, perr := duration.Parse(*res.Text)
		if perr != nil {
			q.runner.log.Warn().Err(perr).Msg("could not parse recognized time")
			out.ParseErr = perr
		} else {
			out.Duration = &d
		}
	}
	return out
}

func failed(req Request, err error) Outcome {
	return Outcome{
		Request: req,
		Result: Result{
			RequestID: req.ID,
			Label:     req.Label,
			Err:       err,
		},
	}
}
