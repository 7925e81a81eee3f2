package auth

import (
	"context"

	"github.com/parishhub/parish/internal/model"
)

type contextKey struct{}

func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(model.Identity)
	return id, ok && id != nil
}

// Admin returns the admin identity on ctx, if any.
func Admin(ctx context.Context) (model.AdminIdentity, bool) {
	id, _ := FromContext(ctx)
	a, ok := id.(model.AdminIdentity)
	return a, ok
}

// FamilyID returns the family id of a family identity on ctx, or 0.
func FamilyID(ctx context.Context) int64 {
	id, _ := FromContext(ctx)
	if f, ok := id.(model.FamilyIdentity); ok {
		return f.FamilyID
	}
	return 0
}

func IsAdmin(ctx context.Context) bool {
	_, ok := Admin(ctx)
	return ok
}
