package supabase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type row struct {
	ID        string `json:"id"`
	Subdomain string `json:"subdomain"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/rest/v1/", APIKey: "anon-key"}, zap.NewNop())
}

func TestMaybeSingle_Found(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/tenants", r.URL.Path)
		assert.Equal(t, "eq.acme", r.URL.Query().Get("subdomain"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"t1","subdomain":"acme"}]`))
	})

	var out row
	found, err := c.MaybeSingle(context.Background(), "tenants", NewQuery().Eq("subdomain", "acme"), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "t1", out.ID)
}

func TestMaybeSingle_ZeroRowsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	var out row
	found, err := c.MaybeSingle(context.Background(), "tenants", NewQuery().Eq("subdomain", "nobody"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsert_ConflictCarriesSQLState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `[{"subdomain":"acme"}]`, string(body))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint \"tenants_subdomain_key\""}`))
	})

	err := c.Insert(context.Background(), "tenants", map[string]any{"subdomain": "acme"}, &row{})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "23505", apiErr.Code)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var rows []row
	err := c.Select(context.Background(), "tenants", NewQuery(), &rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url}, zap.NewNop())
	var rows []row
	err := c.Select(context.Background(), "tenants", NewQuery(), &rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestUpdate_NoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[]`))
	})

	found, err := c.Update(context.Background(), "tenants", NewQuery().Eq("id", "missing"), map[string]any{"name": "x"}, &row{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAndCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			_, _ = w.Write([]byte(`[{"id":"a"}]`))
		case http.MethodGet:
			assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
			w.Header().Set("Content-Range", "0-0/7")
			_, _ = w.Write([]byte(`[{"id":"a"}]`))
		}
	})

	n, err := c.Delete(context.Background(), "employees", NewQuery().Eq("id", "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := c.Count(context.Background(), "employees", NewQuery().Eq("tenant_id", "t1"))
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestQuery_EqAnyQuotesReservedCharacters(t *testing.T) {
	q := NewQuery().EqAny("a.b,c", "mobile", "emp_id")
	assert.Equal(t, `(mobile.eq."a.b,c",emp_id.eq."a.b,c")`, q.values().Get("or"))

	q = NewQuery().EqAny("9876543210", "mobile", "emp_id")
	assert.Equal(t, `(mobile.eq.9876543210,emp_id.eq.9876543210)`, q.values().Get("or"))
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("*/0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = parseContentRange("0-9")
	assert.Error(t, err)
}
