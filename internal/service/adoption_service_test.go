package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

type fakeMachine struct {
	pending    []models.TemplateAdoption
	history    []models.TemplateAdoption
	syncErr    error
	transErr   error
	syncs      int
	lastAction string
	lastNotes  string
}

func (f *fakeMachine) Sync(context.Context) error {
	f.syncs++
	return f.syncErr
}

func (f *fakeMachine) transition(action string, id models.ID) (models.TemplateAdoption, error) {
	f.lastAction = action + ":" + id.String()
	if f.transErr != nil {
		return models.TemplateAdoption{}, f.transErr
	}
	return models.TemplateAdoption{ID: id}, nil
}

func (f *fakeMachine) Adopt(_ context.Context, id models.ID) (models.TemplateAdoption, error) {
	return f.transition("adopt", id)
}

func (f *fakeMachine) Customize(_ context.Context, id models.ID, notes string) (models.TemplateAdoption, error) {
	f.lastNotes = notes
	return f.transition("customize", id)
}

func (f *fakeMachine) Skip(_ context.Context, id models.ID) (models.TemplateAdoption, error) {
	return f.transition("skip", id)
}

func (f *fakeMachine) Pending() []models.TemplateAdoption { return f.pending }
func (f *fakeMachine) History() []models.TemplateAdoption { return f.history }
func (f *fakeMachine) Counters() models.AdoptionCounters {
	c := models.AdoptionCounters{Pending: len(f.pending)}
	for _, a := range f.history {
		c.Add(a.Status, 1)
	}
	return c
}

func TestAdoptionListSyncsFirst(t *testing.T) {
	machine := &fakeMachine{
		pending: []models.TemplateAdoption{{ID: "a-1", Status: models.AdoptionStatusPending}},
		history: []models.TemplateAdoption{{ID: "a-2", Status: models.AdoptionStatusSkipped}},
	}
	svc := NewAdoptionService(machine, nil)

	view, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, machine.syncs)
	assert.Equal(t, models.AdoptionCounters{Pending: 1, Skipped: 1}, view.Counters)
}

func TestAdoptionListPropagatesSyncFailure(t *testing.T) {
	machine := &fakeMachine{syncErr: appErrors.NewRemoteFailure("server down", "", 503)}
	svc := NewAdoptionService(machine, nil)

	_, err := svc.List(context.Background())

	assert.Same(t, machine.syncErr, err)
}

func TestCustomizeForwardsNotesAndReconciles(t *testing.T) {
	machine := &fakeMachine{}
	svc := NewAdoptionService(machine, nil)

	_, err := svc.Customize(context.Background(), "a-7", dto.CustomizeAdoptionRequest{Notes: "Tambah studi kasus lokal"})

	require.NoError(t, err)
	assert.Equal(t, "customize:a-7", machine.lastAction)
	assert.Equal(t, "Tambah studi kasus lokal", machine.lastNotes)
	assert.Equal(t, 1, machine.syncs)
}

func TestFailedTransitionSkipsReconcile(t *testing.T) {
	machine := &fakeMachine{transErr: appErrors.Clone(appErrors.ErrConflict, "busy")}
	svc := NewAdoptionService(machine, nil)

	_, err := svc.Skip(context.Background(), "a-1")

	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 0, machine.syncs)
}

func TestReconcileFailureKeepsOptimisticView(t *testing.T) {
	machine := &fakeMachine{
		history: []models.TemplateAdoption{{ID: "a-1", Status: models.AdoptionStatusAdopted}},
		syncErr: errors.New("network down"),
	}
	svc := NewAdoptionService(machine, nil)

	view, err := svc.Adopt(context.Background(), "a-1")

	require.NoError(t, err)
	assert.Equal(t, 1, view.Counters.Adopted)
}

func TestExportHistoryCSV(t *testing.T) {
	decided := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	notes := "Sesuaikan dengan muatan lokal"
	machine := &fakeMachine{history: []models.TemplateAdoption{
		{ID: "a-1", SourceTemplateID: "t-1", TemplateTitle: "Aljabar", Status: models.AdoptionStatusCustomized, CustomizationNotes: &notes, AdoptedAt: &decided},
		{ID: "a-2", SourceTemplateID: "t-2", TemplateTitle: "Geometri", Status: models.AdoptionStatusSkipped},
	}}
	svc := NewAdoptionService(machine, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) }

	file, err := svc.ExportHistory(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "adoption-history-20250305-100000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, adoptionExportHeaders, records[0])
	assert.Equal(t, []string{"a-1", "t-1", "Aljabar", "customized", notes, "2025-03-04T05:06:07Z"}, records[1])
	assert.Equal(t, []string{"a-2", "t-2", "Geometri", "skipped", "", ""}, records[2])
}

func TestExportHistoryPDF(t *testing.T) {
	machine := &fakeMachine{history: []models.TemplateAdoption{{ID: "a-1", Status: models.AdoptionStatusAdopted}}}
	svc := NewAdoptionService(machine, nil)

	file, err := svc.ExportHistory(context.Background(), "PDF")

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportHistoryRejectsUnknownFormat(t *testing.T) {
	svc := NewAdoptionService(&fakeMachine{}, nil)

	_, err := svc.ExportHistory(context.Background(), "xlsx")

	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
