package access

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/docfilter/core/logger"
)

func newTestRouter(issuer string) (*mux.Router, *[]*Authorization, *[]string) {
	var seen []*Authorization
	var identities []string
	router := mux.NewRouter()
	router.Use(NewJwtMiddleware(&JwtMiddlewareBuilder{Secret: []byte("secret"), Issuer: issuer}))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		auth := AuthorizationFromContext(r.Context())
		seen = append(seen, auth)
		identities = append(identities, logger.IdentityFromContext(r.Context()))
	})
	return router, &seen, &identities
}

func serve(router *mux.Router, bearer string) int {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearer != "" {
		r.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec.Code
}

func TestJwtMiddleware(t *testing.T) {
	router, seen, identities := newTestRouter("https://issuer")

	assert.Equal(t, http.StatusOK, serve(router, ""))
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0])

	token, err := NewToken([]byte("secret"), "https://issuer", "a@example.com", []string{"reader"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(router, "Bearer "+token))
	require.Len(t, *seen, 2)
	assert.Equal(t, "https://issuer|a@example.com", (*seen)[1].Identity)
	assert.True(t, (*seen)[1].HasRole("reader"))
	assert.Equal(t, []string{"", "https://issuer|a@example.com"}, *identities)
}

func TestJwtMiddlewareRejects(t *testing.T) {
	router, seen, _ := newTestRouter("https://issuer")

	wrongKey, err := NewToken([]byte("other"), "https://issuer", "a@example.com", nil, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := NewToken([]byte("secret"), "https://elsewhere", "a@example.com", nil, time.Hour)
	require.NoError(t, err)
	expired, err := NewToken([]byte("secret"), "https://issuer", "a@example.com", nil, -time.Hour)
	require.NoError(t, err)

	for _, bearer := range []string{"Bearer " + wrongKey, "Bearer " + wrongIssuer, "Bearer " + expired, "Bearer garbage"} {
		assert.Equal(t, http.StatusUnauthorized, serve(router, bearer))
	}
	assert.Empty(t, *seen)
}

func TestHasAnyRole(t *testing.T) {
	var none *Authorization
	assert.True(t, none.HasAnyRole(nil))
	assert.False(t, none.HasAnyRole([]string{"admin"}))

	auth := &Authorization{Roles: []string{"reader"}}
	assert.True(t, auth.HasAnyRole([]string{"admin", "reader"}))
	assert.False(t, auth.HasAnyRole([]string{"admin"}))
}
