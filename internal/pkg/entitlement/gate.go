// Package entitlement defines the tier/entitlement gate consulted before
// allowing premium request types. Computing entitlements is an external
// concern; this module only asks yes/no.
package entitlement

import (
	"context"

	identity "carechat/internal/pkg/identity/domain"
)

// Features gated by entitlement checks.
const FeatureSimilarityMatching = "similarity_matching"

// Gate answers whether a participant may use a gated feature.
type Gate interface {
	IsEntitled(ctx context.Context, ref identity.Ref, feature string) bool
}

// GateFunc adapts a plain function to the Gate interface.
type GateFunc func(ctx context.Context, ref identity.Ref, feature string) bool

func (f GateFunc) IsEntitled(ctx context.Context, ref identity.Ref, feature string) bool {
	return f(ctx, ref, feature)
}

// AllowAll grants every feature to every participant.
func AllowAll() Gate {
	return GateFunc(func(context.Context, identity.Ref, string) bool { return true })
}

// DenyAll refuses every feature.
func DenyAll() Gate {
	return GateFunc(func(context.Context, identity.Ref, string) bool { return false })
}
