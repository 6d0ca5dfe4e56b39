package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/service"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

type adoptionServiceMock struct {
	view      *dto.AdoptionsResponse
	err       error
	lastID    models.ID
	lastNotes string
	format    string
}

func (m *adoptionServiceMock) List(ctx context.Context) (*dto.AdoptionsResponse, error) {
	return m.view, m.err
}

func (m *adoptionServiceMock) Sync(ctx context.Context) (*dto.AdoptionsResponse, error) {
	return m.view, m.err
}

func (m *adoptionServiceMock) Adopt(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error) {
	m.lastID = id
	return m.view, m.err
}

func (m *adoptionServiceMock) Customize(ctx context.Context, id models.ID, req dto.CustomizeAdoptionRequest) (*dto.AdoptionsResponse, error) {
	m.lastID = id
	m.lastNotes = req.Notes
	return m.view, m.err
}

func (m *adoptionServiceMock) Skip(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error) {
	m.lastID = id
	return m.view, m.err
}

func (m *adoptionServiceMock) ExportHistory(ctx context.Context, format string) (*service.ExportFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "adoption-history.csv", ContentType: "text/csv; charset=utf-8", Content: []byte("id\n")}, nil
}

func TestAdoptionHandlerCustomizeBindsNotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &adoptionServiceMock{view: &dto.AdoptionsResponse{Counters: models.AdoptionCounters{Pending: 2, Customized: 1}}}
	h := NewAdoptionHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/adoptions/a-3/customize", bytes.NewReader([]byte(`{"customization_notes":"Tambah praktikum"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-3"}}
	h.Customize(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ID("a-3"), mock.lastID)
	assert.Equal(t, "Tambah praktikum", mock.lastNotes)
	assert.Contains(t, w.Body.String(), `"customized":1`)
}

func TestAdoptionHandlerConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdoptionHandler(&adoptionServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "adoption a-1 already has a transition in flight")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/adoptions/a-1/adopt", nil)
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	h.Adopt(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"CONFLICT"`)
}

func TestAdoptionHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &adoptionServiceMock{}
	h := NewAdoptionHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/adoptions/history/export?format=csv", nil)
	h.ExportHistory(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.format)
	assert.Equal(t, `attachment; filename="adoption-history.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id\n", w.Body.String())
}
