package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CompleteFunc func(ctx context.Context, req Request) (Response, error)

type Middleware interface {
	HandleComplete(ctx context.Context, req Request, next CompleteFunc) (Response, error)
}

// MiddlewareFunc adapts a plain function. A nil Complete passes through.
type MiddlewareFunc struct {
	Complete func(ctx context.Context, req Request, next CompleteFunc) (Response, error)
}

func (m MiddlewareFunc) HandleComplete(ctx context.Context, req Request, next CompleteFunc) (Response, error) {
	if m.Complete == nil {
		return next(ctx, req)
	}
	return m.Complete(ctx, req, next)
}

func applyMiddlewareComplete(base CompleteFunc, mws []Middleware) CompleteFunc {
	h := base
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := h
		h = func(ctx context.Context, req Request) (Response, error) {
			return mw.HandleComplete(ctx, req, next)
		}
	}
	return h
}

// LogCalls logs one line per completed call with timing and token usage. Prompt text is
// never logged.
func LogCalls(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return MiddlewareFunc{Complete: func(ctx context.Context, req Request, next CompleteFunc) (Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		fields := []zap.Field{
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.String("purpose", req.Purpose),
			zap.Float64("temperature", req.Temperature),
			zap.Float64("top_p", req.TopP),
			zap.Int("max_tokens", req.MaxTokens),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			if ce, ok := AsCallError(err); ok {
				fields = append(fields, zap.String("kind", string(ce.Kind)), zap.Bool("resubmittable", ce.Resubmittable()))
			}
			logger.Warn("llm call failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		logger.Debug("llm call", append(fields,
			zap.String("finish_reason", resp.FinishReason),
			zap.Bool("truncated", resp.Truncated()),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
		)...)
		return resp, nil
	}}
}
