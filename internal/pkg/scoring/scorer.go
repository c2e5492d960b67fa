// Package scoring defines the contract for the external similarity scorer.
// The score is advisory metadata attached to invitees, never a matching
// constraint.
package scoring

import (
	"context"

	identity "carechat/internal/pkg/identity/domain"
)

// Scorer computes a similarity score between two participants in [0, 100].
type Scorer interface {
	Score(ctx context.Context, a identity.Ref, b identity.Ref) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, a identity.Ref, b identity.Ref) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, a identity.Ref, b identity.Ref) (float64, error) {
	return f(ctx, a, b)
}

// Fixed returns a Scorer that always yields v. Used for tests and as a
// placeholder until a real scoring collaborator is wired in.
func Fixed(v float64) Scorer {
	return ScorerFunc(func(context.Context, identity.Ref, identity.Ref) (float64, error) {
		return v, nil
	})
}
