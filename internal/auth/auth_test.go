package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CareTrack/internal/models"
)

func TestMiddleware_InjectsIdentity(t *testing.T) {
	var got Identity
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("through"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderRole, models.RolePatient)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// The wrapped handler must receive the caller's ResponseWriter.
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "through", rec.Body.String())
	require.Equal(t, Identity{UserID: "u1", Role: models.RolePatient}, got)
}

func TestMiddleware_MissingIdentityRejected(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_DefaultsRoleToCaretaker(t *testing.T) {
	var got Identity
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, models.RoleCaretaker, got.Role)
}

type fakeLinks struct {
	linked map[string]bool
}

func (f *fakeLinks) HasCaretakerLink(ctx context.Context, caretakerID, patientID string) (bool, error) {
	return f.linked[caretakerID+"/"+patientID], nil
}

func TestAccess_CanAccessPatient(t *testing.T) {
	a := NewAccess(&fakeLinks{linked: map[string]bool{"c1/p1": true}})
	ctx := context.Background()

	require.NoError(t, a.CanAccessPatient(ctx, Identity{UserID: "p1", Role: models.RolePatient}, "p1"))
	require.ErrorIs(t, a.CanAccessPatient(ctx, Identity{UserID: "p1", Role: models.RolePatient}, "p2"), models.ErrNotFound)

	require.NoError(t, a.CanAccessPatient(ctx, Identity{UserID: "c1", Role: models.RoleCaretaker}, "p1"))
	require.ErrorIs(t, a.CanAccessPatient(ctx, Identity{UserID: "c1", Role: models.RoleCaretaker}, "p2"), models.ErrNotFound)
}
