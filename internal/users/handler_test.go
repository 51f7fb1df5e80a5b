package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, requireAuth func(http.Handler) http.Handler) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/users", NewHandler(nil, f.svc, requireAuth).MountRoutes)
	return r, f
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestHandlerCreateAndGet(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	res := do(t, h, http.MethodPost, "/users", `{"email":"a@a.com","password":"123456","name":"A"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, true, created["flag_active"])
	assert.Nil(t, created["expiration_at"])
	assert.NotContains(t, created, "password")

	res = do(t, h, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), "123456")

	res = do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, res.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestHandlerListEmpty(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	res := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())
}

func TestHandlerValidation(t *testing.T) {
	h, f := newTestRouter(t, nil)

	cases := map[string]string{
		"bad email":      `{"email":"nope","password":"123456","name":"A"}`,
		"short password": `{"email":"a@a.com","password":"123","name":"A"}`,
		"missing name":   `{"email":"a@a.com","password":"123456"}`,
		"malformed":      `{"email":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := do(t, h, http.MethodPost, "/users", body)
			assert.Equal(t, http.StatusBadRequest, res.Code)
			assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
		})
	}
	assert.Equal(t, 0, f.store.insertCalls)
}

func TestHandlerDuplicateEmail(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	body := `{"email":"a@a.com","password":"123456","name":"A"}`

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", body).Code)
	res := do(t, h, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "user with this email already exists")

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", `{"email":"b@b.com","password":"123456","name":"B"}`).Code)
	res = do(t, h, http.MethodPatch, "/users/2", `{"email":"a@a.com"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestHandlerUpdateAndRemove(t *testing.T) {
	h, f := newTestRouter(t, nil)
	f.store.seed(User{Email: "a@a.com", Password: "123456", Name: "A", FlagActive: true})

	res := do(t, h, http.MethodPatch, "/users/1", `{"name":"X"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"name":"X"`)

	res = do(t, h, http.MethodPatch, "/users/1", `{"password":"12"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(t, h, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = do(t, h, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = do(t, h, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestHandlerRejectsBadID(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	for _, id := range []string{"abc", "0", "-3"} {
		res := do(t, h, http.MethodGet, "/users/"+id, "")
		assert.Equal(t, http.StatusBadRequest, res.Code, id)
	}
}

func TestHandlerStorageFailureHidesCause(t *testing.T) {
	h, f := newTestRouter(t, nil)
	f.store.listErr = assert.AnError

	res := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), assert.AnError.Error())
}

func TestHandlerRoutesRequireAuth(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	h, f := newTestRouter(t, deny)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/users", `{"email":"a@a.com","password":"123456","name":"A"}`},
		{http.MethodGet, "/users", ""},
		{http.MethodGet, "/users/1", ""},
		{http.MethodPatch, "/users/1", `{"name":"X"}`},
		{http.MethodDelete, "/users/1", ""},
	} {
		res := do(t, h, tc.method, tc.target, tc.body)
		assert.Equal(t, http.StatusUnauthorized, res.Code, tc.method+" "+tc.target)
	}
	assert.Equal(t, 0, f.store.insertCalls)
	assert.Equal(t, 0, f.store.listCalls)
}
