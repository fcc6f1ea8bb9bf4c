package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/troopledger/internal/auth"
	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// callerKey is the context key for the authenticated ledger caller.
const callerKey contextKey = "caller"

// FeedCaller is the identity the processor feed acts as.
var FeedCaller = ledger.Caller{UserID: "processor-feed", Role: ledger.RoleSystem}

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, c ledger.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// GetCaller extracts the caller from the context. The zero Caller, which the
// ledger rejects for every mutation, is returned if none was set.
func GetCaller(ctx context.Context) ledger.Caller {
	c, _ := ctx.Value(callerKey).(ledger.Caller)
	return c
}

// RequireAuth returns an interceptor that validates the bearer token and adds
// the caller it identifies to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithCaller(ctx, claims.Caller()), req)
		}
	}
}

// RequireFeedKey returns an interceptor that admits only requests carrying the
// processor feed key. Admitted requests act as FeedCaller.
func RequireFeedKey(verifier *auth.FeedKeyVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if err := verifier.Verify(req.Header().Get(ledgerapi.FeedKeyHeader)); err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithCaller(ctx, FeedCaller), req)
		}
	}
}
