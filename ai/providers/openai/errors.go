package openai

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/opencouncil/orchestrator/core"
)

func asAPIError(err error, target **goopenai.APIError) bool {
	return errors.As(err, target)
}

func ctxErrorKind(err error) core.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return core.ErrKindCancelled
	}
	return ""
}
