package analysis

import "context"

// Stage names a step of a repository analysis, reported to progress
// observers such as the websocket stream.
type Stage string

const (
	StageFetching      Stage = "fetching"
	StageSampling      Stage = "sampling"
	StageAnalyzing     Stage = "analyzing"
	StageWritingManual Stage = "writing_manual"
	StageDone          Stage = "done"
)

// ProgressFunc receives stage changes. It is called synchronously.
type ProgressFunc func(stage Stage, detail string)

type ctxKeyProgress struct{}

// WithProgress attaches fn to ctx.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, ctxKeyProgress{}, fn)
}

func report(ctx context.Context, stage Stage, detail string) {
	if fn, ok := ctx.Value(ctxKeyProgress{}).(ProgressFunc); ok && fn != nil {
		fn(stage, detail)
	}
}
