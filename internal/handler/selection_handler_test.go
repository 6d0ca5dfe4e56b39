package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// selectionServiceMock runs the real selection store so cascades are exercised.
type selectionServiceMock struct {
	store    *selection.Store
	activeID models.ID
	err      error
}

func newSelectionServiceMock() *selectionServiceMock {
	return &selectionServiceMock{store: selection.NewStore(selection.State{})}
}

func (m *selectionServiceMock) Selection() selection.State { return m.store.State() }

func (m *selectionServiceMock) Select(ctx context.Context, level selection.Level, ref *selection.Ref) (selection.State, error) {
	return m.store.Dispatch(selection.Action{Type: selection.ActionSet, Level: level, Ref: ref})
}

func (m *selectionServiceMock) ClearSelection() selection.State { return m.store.ClearAll() }

func (m *selectionServiceMock) EffectiveCurriculumID(ctx context.Context, routeID models.ID) (models.ID, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	id := selection.EffectiveCurriculumID(routeID, m.store.State(), m.activeID)
	if id == "" {
		return "", "none", nil
	}
	return id, "resolved", nil
}

func (m *selectionServiceMock) Breadcrumbs() []models.Breadcrumb { return nil }

type selectionEnvelope struct {
	Data struct {
		Selection selection.Tuple `json:"selection"`
	} `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func putSelection(t *testing.T, h *SelectionHandler, level, body string) (*httptest.ResponseRecorder, selectionEnvelope) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/selection/"+level, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "level", Value: level}}

	h.Select(c)

	var env selectionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestSelectionHandlerCascade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSelectionHandler(newSelectionServiceMock())

	w, _ := putSelection(t, h, "curriculum", `{"id":"C1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, _ = putSelection(t, h, "grade-level", `{"id":"G1","parent_id":"C1"}`)
	_, _ = putSelection(t, h, "class", `{"id":7}`)
	w, env := putSelection(t, h, "curriculum", `{"id":"C2"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Data.Selection.CurriculumID)
	assert.Equal(t, models.ID("C2"), *env.Data.Selection.CurriculumID)
	assert.Nil(t, env.Data.Selection.GradeLevelID)
	assert.Nil(t, env.Data.Selection.ClassID)
	assert.Nil(t, env.Data.Selection.SubjectID)
}

func TestSelectionHandlerNullClearsLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSelectionHandler(newSelectionServiceMock())
	_, _ = putSelection(t, h, "curriculum", `{"id":"C1"}`)

	w, env := putSelection(t, h, "curriculum", `{"id":null}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.Data.Selection.CurriculumID)
}

func TestSelectionHandlerRejectsOrphan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSelectionHandler(newSelectionServiceMock())

	w, env := putSelection(t, h, "subject", `{"id":"S1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.KindValidation, env.Error.Code)
}

func TestSelectionHandlerUnknownLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSelectionHandler(newSelectionServiceMock())

	w, _ := putSelection(t, h, "school", `{"id":"X"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectionHandlerEffectiveCurriculum(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := newSelectionServiceMock()
	mock.activeID = "c-active"
	h := NewSelectionHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/selection/effective-curriculum", nil)
	h.EffectiveCurriculum(c)

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data struct {
			CurriculumID *models.ID `json:"curriculum_id"`
			Source       string     `json:"source"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Data.CurriculumID)
	assert.Equal(t, models.ID("c-active"), *env.Data.CurriculumID)

	mock.err = appErrors.NewRemoteFailure("kurikulum tidak tersedia", "E_UPSTREAM", http.StatusServiceUnavailable)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/selection/effective-curriculum", nil)
	h.EffectiveCurriculum(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
	assert.Contains(t, w.Body.String(), "kurikulum tidak tersedia")
}
