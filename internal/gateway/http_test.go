package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
)

func newTestGateway(handler http.HandlerFunc) (*HTTPGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewHTTPGateway(server.URL, 2*time.Second, zap.NewNop()), server
}

func TestInsertSucceedsOn2xx(t *testing.T) {
	var gotPath, gotMethod string
	gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
	})
	defer server.Close()

	err := gw.Insert(context.Background(), model.EntityProduct, []byte(`{"id":"p1"}`))
	require.NoError(t, err)
	assert.Equal(t, "/api/product", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestUpdateSendsTokenHeader(t *testing.T) {
	token := time.Date(2024, time.May, 7, 10, 30, 0, 123456789, time.UTC)
	var gotToken string
	gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(TokenHeader)
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	err := gw.Update(context.Background(), model.EntityProduct, "p1", []byte(`{}`), token)
	require.NoError(t, err)
	assert.Equal(t, token.Format(time.RFC3339Nano), gotToken)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusBadRequest, apperr.KindValidation},
		{http.StatusUnprocessableEntity, apperr.KindValidation},
		{http.StatusConflict, apperr.KindConflict},
		{http.StatusPreconditionFailed, apperr.KindConflict},
		{http.StatusInternalServerError, apperr.KindTransient},
		{http.StatusBadGateway, apperr.KindTransient},
		{http.StatusServiceUnavailable, apperr.KindTransient},
		{http.StatusTooManyRequests, apperr.KindTransient},
	}

	for _, tt := range tests {
		gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"nope"}`, tt.status)
		})
		err := gw.Insert(context.Background(), model.EntityProduct, []byte(`{}`))
		server.Close()

		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.kind, apperr.KindOf(err), "status %d", tt.status)
	}
}

func TestUnreachableGatewayIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // deliberately dead endpoint

	gw := NewHTTPGateway(server.URL, time.Second, zap.NewNop())
	err := gw.Delete(context.Background(), model.EntityProduct, "p1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestDeleteTargetsEntityPath(t *testing.T) {
	var gotPath, gotMethod string
	gw, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	err := gw.Delete(context.Background(), model.EntityBatch, "b1")
	require.NoError(t, err)
	assert.Equal(t, "/api/batch/b1", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}
