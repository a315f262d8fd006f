package server

import (
	"context"

	"github.com/lpoole/gatez/internal/core"
	"github.com/lpoole/gatez/internal/service"
	"github.com/lpoole/gatez/internal/validate"
)

type Service interface {
	Evaluate(ctx context.Context, userContext *core.UserContext) service.EvaluationResult
	ValidateDocument(document any) validate.Result
	Reload(ctx context.Context) error
	Features() []core.FeatureDefinition
	Summary() service.ConfigSummary
}

var _ Service = (*service.Service)(nil)
