package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membership-service/internal/models"

	"github.com/stretchr/testify/require"
)

func newVerifierServer(t *testing.T, handler http.HandlerFunc) *AssertionVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAssertionVerifier(srv.URL, "localhost:1616", 2*time.Second)
}

func TestAssertionVerifier_Okay(t *testing.T) {
	verifier := newVerifierServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "signed-assertion", r.PostForm.Get("assertion"))
		require.Equal(t, "localhost:1616", r.PostForm.Get("audience"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"okay","email":"orwell@1984.apocalypse","audience":"localhost:1616","expires":1390000000000,"issuer":"login.persona.org"}`))
	})

	email, err := verifier.Verify(context.Background(), "signed-assertion")
	require.NoError(t, err)
	require.Equal(t, "orwell@1984.apocalypse", email)
}

func TestAssertionVerifier_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"failure status", `{"status":"failure","reason":"assertion has expired"}`},
		{"okay without email", `{"status":"okay"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newVerifierServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := verifier.Verify(context.Background(), "signed-assertion")
			require.ErrorIs(t, err, models.ErrIdentityRejected)
		})
	}
}

func TestAssertionVerifier_EmptyAssertionNeverCallsOut(t *testing.T) {
	called := false
	verifier := newVerifierServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, models.ErrIdentityRejected)
	require.False(t, called)
}

func TestAssertionVerifier_Unavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		verifier := newVerifierServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := verifier.Verify(context.Background(), "signed-assertion")
		require.ErrorIs(t, err, models.ErrIdentityUnavailable)
	})

	t.Run("garbage body", func(t *testing.T) {
		verifier := newVerifierServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		})
		_, err := verifier.Verify(context.Background(), "signed-assertion")
		require.ErrorIs(t, err, models.ErrIdentityUnavailable)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		verifier := NewAssertionVerifier(url, "localhost:1616", time.Second)
		_, err := verifier.Verify(context.Background(), "signed-assertion")
		require.ErrorIs(t, err, models.ErrIdentityUnavailable)
	})
}
