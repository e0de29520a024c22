// Package confirm decides whether a provider command should proceed.
package confirm

import (
	"context"

	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/pkg/errors"
)

// Modes accepted by New.
const (
	ModePrompt = "prompt"
	ModeAlways = "always"
	ModeNever  = "never"
)

// Request describes the command awaiting confirmation.
type Request struct {
	Command      string
	Files        []string
	Capabilities scc.Capability
	CommentLimit int
}

// Confirmer returns whether the command should proceed.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Always approves every command.
type Always struct{}

func (Always) Confirm(context.Context, Request) (bool, error) { return true, nil }

// Never declines every command.
type Never struct{}

func (Never) Confirm(context.Context, Request) (bool, error) { return false, nil }

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, req Request) (bool, error)

func (f Func) Confirm(ctx context.Context, req Request) (bool, error) { return f(ctx, req) }

// New returns the confirmer for mode. Prompting uses the process terminal.
func New(mode string) (Confirmer, error) {
	switch mode {
	case ModePrompt:
		return NewTerminal(nil, nil), nil
	case ModeAlways, "":
		return Always{}, nil
	case ModeNever:
		return Never{}, nil
	default:
		return nil, errors.Errorf("unknown confirm mode %q", mode)
	}
}
