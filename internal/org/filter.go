// AngelaMos | 2026
// filter.go

package org

import (
	"context"
)

// Filter is the per-request effective organization scope. It is created
// once by the ContextResolver, threaded through the request context, and
// discarded at request end. Downstream repositories must scope every
// query by OrganizationID.
type Filter struct {
	OrganizationID  string
	IsImpersonation bool
	ImpersonatorID  string
}

type filterKey struct{}

func WithFilter(ctx context.Context, f *Filter) context.Context {
	return context.WithValue(ctx, filterKey{}, f)
}

func FilterFromContext(ctx context.Context) *Filter {
	if f, ok := ctx.Value(filterKey{}).(*Filter); ok {
		return f
	}
	return nil
}

// EffectiveOrgID returns the resolved organization id for the request,
// or the empty string when no filter was established.
func EffectiveOrgID(ctx context.Context) string {
	if f := FilterFromContext(ctx); f != nil {
		return f.OrganizationID
	}
	return ""
}
