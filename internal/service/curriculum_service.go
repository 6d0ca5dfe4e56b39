package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Effective curriculum sources.
const (
	SourceRoute     = "route"
	SourceSelection = "selection"
	SourceActive    = "active"
	SourceNone      = "none"
)

// Prefetcher schedules background loads of a level's children.
type Prefetcher interface {
	Schedule(level selection.Level, id models.ID) bool
}

// Fetched wraps a query payload with its cache metadata.
type Fetched[T any] struct {
	Data      T
	CacheHit  bool
	FetchedAt time.Time
}

// CurriculumServiceParams groups the dependencies of CurriculumService.
type CurriculumServiceParams struct {
	Queries   *querycache.Client
	Selection *selection.Store
	Prefetch  Prefetcher
	Validator *validator.Validate
	Logger    *zap.Logger
}

// CurriculumService is the facade over the curriculum hierarchy, the
// selection, and the query cache.
type CurriculumService struct {
	queries   *querycache.Client
	selection *selection.Store
	prefetch  Prefetcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs the service.
func NewCurriculumService(params CurriculumServiceParams) *CurriculumService {
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sel := params.Selection
	if sel == nil {
		sel = selection.NewStore(selection.State{})
	}
	return &CurriculumService{
		queries:   params.Queries,
		selection: sel,
		prefetch:  params.Prefetch,
		validator: v,
		logger:    logger,
	}
}

func fetch[T any](ctx context.Context, c *querycache.Client, name string, params querycache.Params, opts ...querycache.QueryOption) (Fetched[T], error) {
	data, res, err := querycache.QueryAs[T](ctx, c, name, params, opts...)
	if err != nil {
		return Fetched[T]{}, err
	}
	return Fetched[T]{Data: data, CacheHit: res.CacheHit, FetchedAt: res.FetchedAt}, nil
}

func queryOptions(refresh bool, extra ...querycache.QueryOption) []querycache.QueryOption {
	opts := append([]querycache.QueryOption(nil), extra...)
	if refresh {
		opts = append(opts, querycache.WithForceRefresh())
	}
	return opts
}

// scopedOptions attaches a relevance guard when parentID is the current
// selection at parent level.
func (s *CurriculumService) scopedOptions(parent selection.Level, parentID models.ID, refresh bool) []querycache.QueryOption {
	if s.selection.State().ID(parent) == parentID {
		return queryOptions(refresh, querycache.WithGuard(s.selection.Guard(parent)))
	}
	return queryOptions(refresh)
}

func requireID(name string, id models.ID) error {
	if strings.TrimSpace(string(id)) == "" {
		return appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return nil
}

func (s *CurriculumService) validate(req interface{}) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return nil
}

// ListCurricula returns every curriculum of the branch.
func (s *CurriculumService) ListCurricula(ctx context.Context, refresh bool) (Fetched[[]models.Curriculum], error) {
	return fetch[[]models.Curriculum](ctx, s.queries, querycache.OpListCurricula, nil, queryOptions(refresh)...)
}

// GetCurriculum returns one curriculum.
func (s *CurriculumService) GetCurriculum(ctx context.Context, id models.ID, refresh bool) (Fetched[models.Curriculum], error) {
	if err := requireID("curriculum id", id); err != nil {
		return Fetched[models.Curriculum]{}, err
	}
	return fetch[models.Curriculum](ctx, s.queries, querycache.OpGetCurriculum,
		querycache.Params{querycache.ParamID: string(id)}, queryOptions(refresh)...)
}

// CurriculumStatistics returns the dashboard rollup of a curriculum.
func (s *CurriculumService) CurriculumStatistics(ctx context.Context, id models.ID, refresh bool) (Fetched[models.CurriculumStatistics], error) {
	if err := requireID("curriculum id", id); err != nil {
		return Fetched[models.CurriculumStatistics]{}, err
	}
	return fetch[models.CurriculumStatistics](ctx, s.queries, querycache.OpGetCurriculumStatistics,
		querycache.Params{querycache.ParamID: string(id)}, queryOptions(refresh)...)
}

// ListGradeLevels returns the grade levels of a curriculum.
func (s *CurriculumService) ListGradeLevels(ctx context.Context, curriculumID models.ID, refresh bool) (Fetched[[]models.GradeLevel], error) {
	if err := requireID("curriculum id", curriculumID); err != nil {
		return Fetched[[]models.GradeLevel]{}, err
	}
	return fetch[[]models.GradeLevel](ctx, s.queries, querycache.OpListGradeLevels,
		querycache.Params{querycache.ParamCurriculumID: string(curriculumID)},
		s.scopedOptions(selection.LevelCurriculum, curriculumID, refresh)...)
}

// ListClasses returns the classes of a grade level.
func (s *CurriculumService) ListClasses(ctx context.Context, gradeLevelID models.ID, refresh bool) (Fetched[[]models.Class], error) {
	if err := requireID("grade level id", gradeLevelID); err != nil {
		return Fetched[[]models.Class]{}, err
	}
	return fetch[[]models.Class](ctx, s.queries, querycache.OpListClasses,
		querycache.Params{querycache.ParamGradeLevelID: string(gradeLevelID)},
		s.scopedOptions(selection.LevelGradeLevel, gradeLevelID, refresh)...)
}

// ListSubjects returns the subjects of a class.
func (s *CurriculumService) ListSubjects(ctx context.Context, classID models.ID, refresh bool) (Fetched[[]models.Subject], error) {
	if err := requireID("class id", classID); err != nil {
		return Fetched[[]models.Subject]{}, err
	}
	return fetch[[]models.Subject](ctx, s.queries, querycache.OpListSubjects,
		querycache.Params{querycache.ParamClassID: string(classID)},
		s.scopedOptions(selection.LevelClass, classID, refresh)...)
}

// ListMaterials returns the materials of a subject.
func (s *CurriculumService) ListMaterials(ctx context.Context, subjectID models.ID, refresh bool) (Fetched[[]models.Material], error) {
	if err := requireID("subject id", subjectID); err != nil {
		return Fetched[[]models.Material]{}, err
	}
	return fetch[[]models.Material](ctx, s.queries, querycache.OpListMaterials,
		querycache.Params{querycache.ParamSubjectID: string(subjectID)},
		s.scopedOptions(selection.LevelSubject, subjectID, refresh)...)
}

// GetMaterial returns one material.
func (s *CurriculumService) GetMaterial(ctx context.Context, id models.ID, refresh bool) (Fetched[models.Material], error) {
	if err := requireID("material id", id); err != nil {
		return Fetched[models.Material]{}, err
	}
	return fetch[models.Material](ctx, s.queries, querycache.OpGetMaterial,
		querycache.Params{querycache.ParamID: string(id)}, queryOptions(refresh)...)
}

// ListSemesters returns semesters, optionally filtered by curriculum and academic year.
func (s *CurriculumService) ListSemesters(ctx context.Context, curriculumID models.ID, academicYear string, refresh bool) (Fetched[[]models.Semester], error) {
	params := querycache.Params{
		querycache.ParamCurriculumID: strings.TrimSpace(string(curriculumID)),
		"academic_year":              strings.TrimSpace(academicYear),
	}
	return fetch[[]models.Semester](ctx, s.queries, querycache.OpListSemesters, params, queryOptions(refresh)...)
}

// CreateCurriculum validates and creates a curriculum.
func (s *CurriculumService) CreateCurriculum(ctx context.Context, req dto.CurriculumRequest) (*models.Curriculum, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	created, err := querycache.MutateAs[models.Curriculum](ctx, s.queries, querycache.OpCreateCurriculum, nil, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("curriculum created", zap.String("curriculum_id", created.ID.String()))
	return &created, nil
}

// UpdateCurriculum validates and updates a curriculum.
func (s *CurriculumService) UpdateCurriculum(ctx context.Context, id models.ID, req dto.CurriculumRequest) (*models.Curriculum, error) {
	if err := requireID("curriculum id", id); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	updated, err := querycache.MutateAs[models.Curriculum](ctx, s.queries, querycache.OpUpdateCurriculum,
		querycache.Params{querycache.ParamID: string(id)}, req)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ActivateCurriculum makes id the active curriculum of the branch.
func (s *CurriculumService) ActivateCurriculum(ctx context.Context, id models.ID) (*models.Curriculum, error) {
	if err := requireID("curriculum id", id); err != nil {
		return nil, err
	}
	activated, err := querycache.MutateAs[models.Curriculum](ctx, s.queries, querycache.OpActivateCurriculum,
		querycache.Params{querycache.ParamID: string(id)}, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("curriculum activated", zap.String("curriculum_id", id.String()))
	return &activated, nil
}

// DeleteCurriculum removes a curriculum and clears the selection when it was selected.
func (s *CurriculumService) DeleteCurriculum(ctx context.Context, id models.ID) error {
	if err := requireID("curriculum id", id); err != nil {
		return err
	}
	if _, err := s.queries.Mutate(ctx, querycache.OpDeleteCurriculum, querycache.Params{querycache.ParamID: string(id)}, nil); err != nil {
		return err
	}
	if s.selection.State().ID(selection.LevelCurriculum) == id {
		if _, err := s.selection.SetCurriculum(nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateMaterial validates and creates a material.
func (s *CurriculumService) CreateMaterial(ctx context.Context, req dto.CreateMaterialRequest) (*models.Material, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = models.MaterialStatusDraft
	}
	params := querycache.Params{
		querycache.ParamSubjectID:    string(req.SubjectID),
		querycache.ParamCurriculumID: string(req.CurriculumID),
	}
	created, err := querycache.MutateAs[models.Material](ctx, s.queries, querycache.OpCreateMaterial, params, req)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMaterial validates and updates a material.
func (s *CurriculumService) UpdateMaterial(ctx context.Context, id models.ID, req dto.UpdateMaterialRequest) (*models.Material, error) {
	if err := requireID("material id", id); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	updated, err := querycache.MutateAs[models.Material](ctx, s.queries, querycache.OpUpdateMaterial,
		querycache.Params{querycache.ParamID: string(id)}, req)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMaterial removes a material.
func (s *CurriculumService) DeleteMaterial(ctx context.Context, id models.ID) error {
	if err := requireID("material id", id); err != nil {
		return err
	}
	_, err := s.queries.Mutate(ctx, querycache.OpDeleteMaterial, querycache.Params{querycache.ParamID: string(id)}, nil)
	return err
}

// ReorderMaterials stores a new material order for a subject.
func (s *CurriculumService) ReorderMaterials(ctx context.Context, subjectID models.ID, req dto.ReorderMaterialsRequest) error {
	if err := requireID("subject id", subjectID); err != nil {
		return err
	}
	if err := s.validate(req); err != nil {
		return err
	}
	_, err := s.queries.Mutate(ctx, querycache.OpReorderMaterials,
		querycache.Params{querycache.ParamSubjectID: string(subjectID)}, req)
	return err
}

// CreateSemester validates and creates a semester.
func (s *CurriculumService) CreateSemester(ctx context.Context, req dto.SemesterRequest) (*models.Semester, error) {
	if err := s.validateSemester(req); err != nil {
		return nil, err
	}
	created, err := querycache.MutateAs[models.Semester](ctx, s.queries, querycache.OpCreateSemester,
		querycache.Params{querycache.ParamCurriculumID: string(req.CurriculumID)}, req)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateSemester validates and updates a semester.
func (s *CurriculumService) UpdateSemester(ctx context.Context, id models.ID, req dto.SemesterRequest) (*models.Semester, error) {
	if err := requireID("semester id", id); err != nil {
		return nil, err
	}
	if err := s.validateSemester(req); err != nil {
		return nil, err
	}
	updated, err := querycache.MutateAs[models.Semester](ctx, s.queries, querycache.OpUpdateSemester,
		querycache.Params{querycache.ParamID: string(id)}, req)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSemester removes a semester.
func (s *CurriculumService) DeleteSemester(ctx context.Context, id models.ID) error {
	if err := requireID("semester id", id); err != nil {
		return err
	}
	_, err := s.queries.Mutate(ctx, querycache.OpDeleteSemester, querycache.Params{querycache.ParamID: string(id)}, nil)
	return err
}

func (s *CurriculumService) validateSemester(req dto.SemesterRequest) error {
	if err := s.validate(req); err != nil {
		return err
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}

// Selection returns the current selection.
func (s *CurriculumService) Selection() selection.State {
	return s.selection.State()
}

// Select sets the slot at level, cascading clears below it, and schedules a
// prefetch of the new selection's children.
func (s *CurriculumService) Select(ctx context.Context, level selection.Level, ref *selection.Ref) (selection.State, error) {
	next, err := s.selection.Dispatch(selection.Action{Type: selection.ActionSet, Level: level, Ref: ref})
	if err != nil {
		return next, err
	}
	if ref != nil && s.prefetch != nil {
		s.prefetch.Schedule(level, ref.ID)
	}
	return next, nil
}

// ClearSelection resets every slot.
func (s *CurriculumService) ClearSelection() selection.State {
	return s.selection.ClearAll()
}

// EffectiveCurriculumID resolves the curriculum the current screen works
// against: the route id, then the selection, then the active curriculum.
func (s *CurriculumService) EffectiveCurriculumID(ctx context.Context, routeID models.ID) (models.ID, string, error) {
	routeID = models.ID(strings.TrimSpace(string(routeID)))
	state := s.selection.State()
	if routeID != "" {
		return routeID, SourceRoute, nil
	}
	if id := state.ID(selection.LevelCurriculum); id != "" {
		return id, SourceSelection, nil
	}
	curricula, err := fetch[[]models.Curriculum](ctx, s.queries, querycache.OpListCurricula, nil)
	if err != nil {
		return "", SourceNone, err
	}
	var activeID models.ID
	for _, c := range curricula.Data {
		if c.IsActive {
			activeID = c.ID
			break
		}
	}
	if id := selection.EffectiveCurriculumID(routeID, state, activeID); id != "" {
		return id, SourceActive, nil
	}
	return "", SourceNone, nil
}

// Breadcrumbs resolves names for the selected path from cached lists. Slots
// whose entity is not cached keep an empty name.
func (s *CurriculumService) Breadcrumbs() []models.Breadcrumb {
	state := s.selection.State()
	crumbs := make([]models.Breadcrumb, 0, len(selection.Levels()))
	for _, level := range selection.Levels() {
		ref, ok := state.Slot(level)
		if !ok {
			continue
		}
		crumbs = append(crumbs, models.Breadcrumb{
			Level: level.String(),
			ID:    ref.ID,
			Name:  s.cachedName(state, level, ref.ID),
		})
	}
	return crumbs
}

func (s *CurriculumService) cachedName(state selection.State, level selection.Level, id models.ID) string {
	switch level {
	case selection.LevelCurriculum:
		if c, ok := peekEntity[models.Curriculum](s.queries, querycache.OpGetCurriculum, querycache.Params{querycache.ParamID: string(id)}); ok {
			return c.Name
		}
		return findName(s.queries, querycache.OpListCurricula, nil, id, func(c models.Curriculum) (models.ID, string) { return c.ID, c.Name })
	case selection.LevelGradeLevel:
		return findName(s.queries, querycache.OpListGradeLevels,
			querycache.Params{querycache.ParamCurriculumID: string(state.ID(selection.LevelCurriculum))}, id,
			func(g models.GradeLevel) (models.ID, string) { return g.ID, g.Name })
	case selection.LevelClass:
		return findName(s.queries, querycache.OpListClasses,
			querycache.Params{querycache.ParamGradeLevelID: string(state.ID(selection.LevelGradeLevel))}, id,
			func(c models.Class) (models.ID, string) { return c.ID, c.Name })
	case selection.LevelSubject:
		return findName(s.queries, querycache.OpListSubjects,
			querycache.Params{querycache.ParamClassID: string(state.ID(selection.LevelClass))}, id,
			func(sub models.Subject) (models.ID, string) { return sub.ID, sub.Name })
	}
	return ""
}

func peekEntity[T any](c *querycache.Client, name string, params querycache.Params) (T, bool) {
	var zero T
	payload, ok := c.Peek(name, params)
	if !ok {
		return zero, false
	}
	v, ok := payload.(T)
	return v, ok
}

func findName[T any](c *querycache.Client, name string, params querycache.Params, id models.ID, pick func(T) (models.ID, string)) string {
	items, ok := peekEntity[[]T](c, name, params)
	if !ok {
		return ""
	}
	for _, item := range items {
		if itemID, label := pick(item); itemID == id {
			return label
		}
	}
	return ""
}

// Freshness reports the cache state of a query.
func (s *CurriculumService) Freshness(name string, params querycache.Params) store.Freshness {
	return s.queries.Freshness(name, params)
}
