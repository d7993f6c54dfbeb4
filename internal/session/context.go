package session

import "context"

type viewContextKey struct{}
type tokenContextKey struct{}

// ContextWithView attaches the materialized session view to the context.
func ContextWithView(ctx context.Context, view View) context.Context {
	return context.WithValue(ctx, viewContextKey{}, &view)
}

// ViewFromContext extracts the session view from the context.
func ViewFromContext(ctx context.Context) (View, bool) {
	if ctx == nil {
		return View{}, false
	}
	v, ok := ctx.Value(viewContextKey{}).(*View)
	if !ok || v == nil {
		return View{}, false
	}
	return *v, true
}

// ContextWithToken stores the validated session token inside the context.
func ContextWithToken(ctx context.Context, t *Token) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, t)
}

// TokenFromContext returns the session token if one was attached.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(tokenContextKey{}).(*Token)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}
