package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/export"
)

var adoptionExportHeaders = []string{"id", "template_id", "template", "status", "notes", "decided_at"}

// AdoptionMachine is the workflow driven by AdoptionService.
type AdoptionMachine interface {
	Sync(ctx context.Context) error
	Adopt(ctx context.Context, id models.ID) (models.TemplateAdoption, error)
	Customize(ctx context.Context, id models.ID, notes string) (models.TemplateAdoption, error)
	Skip(ctx context.Context, id models.ID) (models.TemplateAdoption, error)
	Pending() []models.TemplateAdoption
	History() []models.TemplateAdoption
	Counters() models.AdoptionCounters
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AdoptionService exposes the adoption screens and history exports.
type AdoptionService struct {
	machine AdoptionMachine
	logger  *zap.Logger
	now     func() time.Time
}

// NewAdoptionService constructs the service.
func NewAdoptionService(machine AdoptionMachine, logger *zap.Logger) *AdoptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdoptionService{machine: machine, logger: logger, now: time.Now}
}

// List refreshes from the remote side and returns both sets with counters.
func (s *AdoptionService) List(ctx context.Context) (*dto.AdoptionsResponse, error) {
	if err := s.machine.Sync(ctx); err != nil {
		return nil, err
	}
	return s.view(), nil
}

// Sync reloads both sets.
func (s *AdoptionService) Sync(ctx context.Context) (*dto.AdoptionsResponse, error) {
	return s.List(ctx)
}

// Adopt accepts a template as is.
func (s *AdoptionService) Adopt(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error) {
	if _, err := s.machine.Adopt(ctx, id); err != nil {
		return nil, err
	}
	return s.reconcile(ctx), nil
}

// Customize accepts a template with local notes.
func (s *AdoptionService) Customize(ctx context.Context, id models.ID, req dto.CustomizeAdoptionRequest) (*dto.AdoptionsResponse, error) {
	if _, err := s.machine.Customize(ctx, id, req.Notes); err != nil {
		return nil, err
	}
	return s.reconcile(ctx), nil
}

// Skip declines a template.
func (s *AdoptionService) Skip(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error) {
	if _, err := s.machine.Skip(ctx, id); err != nil {
		return nil, err
	}
	return s.reconcile(ctx), nil
}

// reconcile pulls server truth after a committed transition. A failed sync
// keeps the optimistic view.
func (s *AdoptionService) reconcile(ctx context.Context) *dto.AdoptionsResponse {
	if err := s.machine.Sync(ctx); err != nil {
		s.logger.Warn("adoption sync after transition failed", zap.Error(err))
	}
	return s.view()
}

func (s *AdoptionService) view() *dto.AdoptionsResponse {
	return &dto.AdoptionsResponse{
		Pending:  s.machine.Pending(),
		History:  s.machine.History(),
		Counters: s.machine.Counters(),
	}
}

// ExportHistory renders the decided adoptions as CSV or PDF.
func (s *AdoptionService) ExportHistory(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.machine.Sync(ctx); err != nil {
		s.logger.Warn("exporting cached adoption history", zap.Error(err))
	}

	generated := s.now().UTC()
	history := s.machine.History()
	rows := make([]map[string]string, 0, len(history))
	for _, a := range history {
		row := map[string]string{
			"id":          a.ID.String(),
			"template_id": a.SourceTemplateID.String(),
			"template":    a.TemplateTitle,
			"status":      string(a.Status),
		}
		if a.CustomizationNotes != nil {
			row["notes"] = *a.CustomizationNotes
		}
		if a.AdoptedAt != nil {
			row["decided_at"] = a.AdoptedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	content, err := renderer.Render(export.Dataset{
		Title:       "Template Adoption History",
		GeneratedAt: generated,
		Headers:     adoptionExportHeaders,
		Rows:        rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("adoption-history-%s.%s", generated.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}
