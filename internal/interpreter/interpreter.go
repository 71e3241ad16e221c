// Package interpreter turns raw chat text into a ParsedCommand. It
// prefers the external NLU parser when one is configured, and falls
// back to the deterministic pattern engine on any failure, timeout, or
// unknown result. It never returns an error to the caller.
package interpreter

import (
	"context"

	"shoptalk/internal/domain"
	"shoptalk/internal/intent"

	"go.uber.org/zap"
)

// Parser is the external NLU contract. Implementations may fail or
// time out; the interpreter converts every failure into a fallback.
type Parser interface {
	Parse(ctx context.Context, message string) (*domain.ParsedCommand, error)
}

// Interpreter orchestrates the external parser and the pattern engine.
type Interpreter struct {
	nlu    Parser
	logger *zap.Logger
}

// New creates an Interpreter. nlu may be nil, in which case only the
// pattern engine is consulted.
func New(nlu Parser, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		nlu:    nlu,
		logger: logger,
	}
}

// Interpret classifies the message. The external result is trusted
// as-is when it carries a known, non-unknown intent; everything else
// falls through to intent.Classify.
func (i *Interpreter) Interpret(ctx context.Context, text string) domain.ParsedCommand {
	if i.nlu != nil {
		cmd, err := i.nlu.Parse(ctx, text)
		switch {
		case err != nil:
			i.logger.Warn("NLU parse failed, falling back to pattern engine", zap.Error(err))
		case cmd != nil && cmd.Intent != domain.IntentUnknown:
			return *cmd
		}
	}

	return intent.Classify(text)
}
