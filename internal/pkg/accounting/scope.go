package accounting

import "context"

type elevatedKey struct{}

// WithElevatedPermissions marks calls made with the returned context as
// system generated: the accounting service skips account permission checks
// for those calls only.
func WithElevatedPermissions(ctx context.Context) context.Context {
	return context.WithValue(ctx, elevatedKey{}, true)
}

// IsElevated reports whether ctx carries the elevated permission scope.
func IsElevated(ctx context.Context) bool {
	v, _ := ctx.Value(elevatedKey{}).(bool)
	return v
}
