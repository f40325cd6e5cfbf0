package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WessleyAI/gridlink/engine/domain"
)

func TestResolveFallsBackToUnknown(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		r    Resolver
		want string
	}{
		{"nil", nil, domain.UnknownUser},
		{"empty static", Static(""), domain.UnknownUser},
		{"static", Static("ops@example.com"), "ops@example.com"},
		{"empty chain", Chain{}, domain.UnknownUser},
		{"chain skips junk", Chain{Static("not an email"), nil, Static("a@b.io")}, "a@b.io"},
		{"context without user", Chain{FromContext}, domain.UnknownUser},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(ctx, tc.r); got != tc.want {
				t.Fatalf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMiddlewareCarriesHeader(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = Resolve(r.Context(), Chain{FromContext, Static("fallback@example.com")})
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/loadflow", nil)
	req.Header.Set(Header, " planner@example.com ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "planner@example.com" {
		t.Fatalf("got %q", got)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/loadflow", nil))
	if got != "fallback@example.com" {
		t.Fatalf("got %q", got)
	}
}
