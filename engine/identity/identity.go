// Package identity resolves the caller identity attached to simulation
// parameters. Resolution never fails; it falls back to domain.UnknownUser.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/WessleyAI/gridlink/engine/domain"
)

// Header is the request header carrying the caller's e-mail address.
const Header = "X-User-Email"

// Resolver returns a caller identity, or "" when it has none.
type Resolver interface {
	Resolve(ctx context.Context) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) string

func (f ResolverFunc) Resolve(ctx context.Context) string { return f(ctx) }

// Static always resolves to the same identity.
type Static string

func (s Static) Resolve(context.Context) string { return string(s) }

type ctxKey struct{}

// WithUser stores an identity on ctx.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// FromContext resolves the identity stored by WithUser or Middleware.
var FromContext ResolverFunc = func(ctx context.Context) string {
	u, _ := ctx.Value(ctxKey{}).(string)
	return u
}

// Middleware copies the Header value onto the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := strings.TrimSpace(r.Header.Get(Header)); u != "" {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

var validate = validator.New()

// Chain tries resolvers in order and returns the first valid e-mail
// address. Candidates that are not e-mail addresses are skipped.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context) string {
	for _, r := range c {
		if r == nil {
			continue
		}
		u := strings.TrimSpace(r.Resolve(ctx))
		if u == "" || validate.Var(u, "email") != nil {
			continue
		}
		return u
	}
	return ""
}

// Resolve returns the identity from r, or domain.UnknownUser.
func Resolve(ctx context.Context, r Resolver) string {
	if r != nil {
		if u := r.Resolve(ctx); u != "" {
			return u
		}
	}
	return domain.UnknownUser
}
