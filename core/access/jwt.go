package access

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/docfilter/core/logger"
)

// Claims are the JWT claims understood by the middleware
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// identity is a combination of issuer and email, or the subject if there is no email
func (c *Claims) identity() string {
	if c.Email != "" {
		return c.Issuer + "|" + c.Email
	}
	return c.Issuer + "|" + c.Subject
}

// JwtMiddlewareBuilder is a helper builder for NewJwtMiddleware
type JwtMiddlewareBuilder struct {
	// Secret is the HMAC key for HS256 tokens. This is mandatory.
	Secret []byte
	// Issuer is the accepted issuer for the token. If empty, any issuer is accepted.
	Issuer string
}

// NewJwtMiddleware returns a middleware handler to validate JWT bearer token.
//
// Tokens are accepted as "Authorization: Bearer" header. Requests without a token
// pass through without authorization. A token that cannot be verified is answered
// with http.StatusUnauthorized.
func NewJwtMiddleware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {
	if len(jmb.Secret) == 0 {
		panic("JWT secret is missing")
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jmb.Secret, nil
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := r.Header.Get("Authorization")
			if len(bearer) == 0 || bearer == "null" {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}
			tokenString := bearer
			if len(bearer) >= 7 && strings.ToLower(bearer[:7]) == "bearer " {
				tokenString = bearer[7:]
			}

			rlog := logger.FromContext(r.Context())
			claims := Claims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc)
			if err != nil || !token.Valid || (jmb.Issuer != "" && claims.Issuer != jmb.Issuer) {
				rlog.WithError(err).Debugln("rejected bearer token")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			identity := claims.identity()
			ctx, _ := logger.ContextWithLoggerIdentity(r.Context(), identity)
			ctx = ContextWithAuthorization(ctx, &Authorization{Identity: identity, Roles: claims.Roles})
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewToken issues an HS256 token. It is meant for tests and tooling.
func NewToken(secret []byte, issuer, email string, roles []string, validity time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
