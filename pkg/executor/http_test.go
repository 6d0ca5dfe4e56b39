package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/middleware/requestid"
)

func TestHTTPExecutorBuildsRequest(t *testing.T) {
	var got *http.Request
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data":[{"id":"m-1"}]}`))
	}))
	defer srv.Close()

	exec := NewHTTP(HTTPConfig{BaseURL: srv.URL + "/api/", RolePrefix: "/admin-cabang", Token: "tok"})
	ctx := requestid.WithValue(context.Background(), "req-9")
	res, err := exec.Execute(ctx, Operation{
		Name:   "createMaterial",
		Method: http.MethodPost,
		Path:   "/materi",
		Params: map[string]string{"b": "2", "a": "1"},
		Body:   map[string]string{"nama_materi": "Pecahan"},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"m-1"}]}`, string(res.Data))
	assert.Equal(t, "/api/admin-cabang/materi", got.URL.Path)
	assert.Equal(t, "a=1&b=2", got.URL.RawQuery)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "req-9", got.Header.Get(requestid.HeaderKey))
	assert.Equal(t, "Pecahan", gotBody["nama_materi"])
}

func TestHTTPExecutorMapsFailureEnvelopes(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		message    string
		remoteCode string
		wantStatus int
	}{
		{"flat", http.StatusUnprocessableEntity, `{"message":"nama wajib diisi","code":"E_VALIDATION"}`, "nama wajib diisi", "E_VALIDATION", http.StatusUnprocessableEntity},
		{"nested", http.StatusNotFound, `{"error":{"message":"not here","code":404}}`, "not here", "404", http.StatusNotFound},
		{"success flag", http.StatusOK, `{"success":false,"message":"kurikulum terkunci"}`, "kurikulum terkunci", "", http.StatusBadGateway},
		{"no body", http.StatusInternalServerError, ``, "Internal Server Error", "", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTP(HTTPConfig{BaseURL: srv.URL}).Execute(context.Background(), Operation{Name: "getCurriculum", Path: "/kurikulum/1"})

			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.KindRemoteFailure, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
			assert.Equal(t, tc.remoteCode, appErr.RemoteCode)
			assert.Equal(t, tc.wantStatus, appErr.Status)
		})
	}
}

func TestHTTPExecutorTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewHTTP(HTTPConfig{BaseURL: srv.URL}).Execute(context.Background(), Operation{Name: "listCurricula", Path: "/kurikulum"})

	require.Error(t, err)
	assert.Equal(t, "TRANSPORT", appErrors.FromError(err).RemoteCode)
}
