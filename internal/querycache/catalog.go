package querycache

import (
	"net/http"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
)

// Operation names.
const (
	OpListCurricula           = "listCurricula"
	OpGetCurriculum           = "getCurriculum"
	OpGetCurriculumStatistics = "getCurriculumStatistics"
	OpCreateCurriculum        = "createCurriculum"
	OpUpdateCurriculum        = "updateCurriculum"
	OpActivateCurriculum      = "activateCurriculum"
	OpDeleteCurriculum        = "deleteCurriculum"
	OpListGradeLevels         = "listGradeLevels"
	OpListClasses             = "listClasses"
	OpListSubjects            = "listSubjects"
	OpListMaterials           = "listMaterials"
	OpGetMaterial             = "getMaterial"
	OpCreateMaterial          = "createMaterial"
	OpUpdateMaterial          = "updateMaterial"
	OpDeleteMaterial          = "deleteMaterial"
	OpReorderMaterials        = "reorderMaterials"
	OpListSemesters           = "listSemesters"
	OpCreateSemester          = "createSemester"
	OpUpdateSemester          = "updateSemester"
	OpDeleteSemester          = "deleteSemester"
	OpGetTemplate             = "getTemplate"
	OpListPendingAdoptions    = "listPendingAdoptions"
	OpListAdoptionHistory     = "listAdoptionHistory"
	OpAdoptTemplate           = "adoptTemplate"
	OpCustomizeTemplate       = "customizeTemplate"
	OpSkipTemplate            = "skipTemplate"
)

// Entity tag types.
const (
	EntityCurriculum       = "Curriculum"
	EntityGradeLevel       = "GradeLevel"
	EntityClass            = "Class"
	EntitySubject          = "Subject"
	EntityMaterial         = "Material"
	EntitySemester         = "Semester"
	EntityTemplate         = "Template"
	EntityTemplateAdoption = "TemplateAdoption"
)

// Param names shared by the catalog and its callers.
const (
	ParamID           = "id"
	ParamCurriculumID = "curriculum_id"
	ParamGradeLevelID = "grade_level_id"
	ParamClassID      = "class_id"
	ParamSubjectID    = "subject_id"
)

// DefaultRegistry returns the full curriculum and adoption catalog. Paths are
// relative to the organizational tier prefix applied by the executor.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Operation{
			Name: OpListCurricula, Kind: KindQuery, Path: "/kurikulum",
			Normalize: decodeList[models.Curriculum],
			Tags: combine(
				static(EntityCurriculum),
				listTags(EntityCurriculum, func(c models.Curriculum) models.ID { return c.ID }),
			),
		},
		Operation{
			Name: OpGetCurriculum, Kind: KindQuery, Path: "/kurikulum/{id}",
			Normalize: decodeOne[models.Curriculum],
			Tags:      combine(static(EntityCurriculum), paramTag(EntityCurriculum, ParamID)),
		},
		Operation{
			Name: OpGetCurriculumStatistics, Kind: KindQuery, Path: "/kurikulum/{id}/statistics",
			Normalize: decodeOne[models.CurriculumStatistics],
			Tags:      combine(static(EntityCurriculum), paramTag(EntityCurriculum, ParamID)),
		},
		Operation{
			Name: OpCreateCurriculum, Kind: KindMutation, Method: http.MethodPost, Path: "/kurikulum",
			Normalize:   decodeOptional[models.Curriculum],
			Invalidates: static(ListTag(EntityCurriculum)),
		},
		Operation{
			Name: OpUpdateCurriculum, Kind: KindMutation, Method: http.MethodPut, Path: "/kurikulum/{id}",
			Normalize:   decodeOptional[models.Curriculum],
			Invalidates: combine(paramTag(EntityCurriculum, ParamID), static(ListTag(EntityCurriculum))),
		},
		Operation{
			Name: OpActivateCurriculum, Kind: KindMutation, Method: http.MethodPost, Path: "/kurikulum/{id}/activate",
			Normalize:   decodeOptional[models.Curriculum],
			Invalidates: static(EntityCurriculum),
		},
		Operation{
			Name: OpDeleteCurriculum, Kind: KindMutation, Method: http.MethodDelete, Path: "/kurikulum/{id}",
			Normalize:   discardBody,
			Invalidates: combine(paramTag(EntityCurriculum, ParamID), static(ListTag(EntityCurriculum))),
		},
		Operation{
			Name: OpListGradeLevels, Kind: KindQuery, Path: "/kurikulum/{curriculum_id}/jenjang",
			Normalize: decodeList[models.GradeLevel],
			Tags:      listTags(EntityGradeLevel, func(g models.GradeLevel) models.ID { return g.ID }),
		},
		Operation{
			Name: OpListClasses, Kind: KindQuery, Path: "/jenjang/{grade_level_id}/kelas",
			Normalize: decodeList[models.Class],
			Tags:      listTags(EntityClass, func(c models.Class) models.ID { return c.ID }),
		},
		Operation{
			Name: OpListSubjects, Kind: KindQuery, Path: "/kelas/{class_id}/mata-pelajaran",
			Normalize: decodeList[models.Subject],
			Tags:      listTags(EntitySubject, func(s models.Subject) models.ID { return s.ID }),
		},
		Operation{
			Name: OpListMaterials, Kind: KindQuery, Path: "/mata-pelajaran/{subject_id}/materi",
			Normalize: decodeList[models.Material],
			Tags:      listTags(EntityMaterial, func(m models.Material) models.ID { return m.ID }),
		},
		Operation{
			Name: OpGetMaterial, Kind: KindQuery, Path: "/materi/{id}",
			Normalize: decodeOne[models.Material],
			Tags:      paramTag(EntityMaterial, ParamID),
		},
		Operation{
			Name: OpCreateMaterial, Kind: KindMutation, Method: http.MethodPost, Path: "/materi",
			Normalize: decodeOptional[models.Material],
			Invalidates: combine(
				static(ListTag(EntityMaterial), EntityCurriculum),
				paramTag(EntitySubject, ParamSubjectID),
			),
		},
		Operation{
			Name: OpUpdateMaterial, Kind: KindMutation, Method: http.MethodPut, Path: "/materi/{id}",
			Normalize:   decodeOptional[models.Material],
			Invalidates: combine(paramTag(EntityMaterial, ParamID), static(ListTag(EntityMaterial))),
		},
		Operation{
			Name: OpDeleteMaterial, Kind: KindMutation, Method: http.MethodDelete, Path: "/materi/{id}",
			Normalize: discardBody,
			Invalidates: combine(
				paramTag(EntityMaterial, ParamID),
				static(ListTag(EntityMaterial), EntityCurriculum, ListTag(EntitySubject)),
			),
		},
		Operation{
			Name: OpReorderMaterials, Kind: KindMutation, Method: http.MethodPost, Path: "/mata-pelajaran/{subject_id}/materi/reorder",
			Normalize:   discardBody,
			Invalidates: combine(static(ListTag(EntityMaterial)), paramTag(EntitySubject, ParamSubjectID)),
		},
		Operation{
			Name: OpListSemesters, Kind: KindQuery, Path: "/semester",
			Normalize: decodeList[models.Semester],
			Tags:      listTags(EntitySemester, func(s models.Semester) models.ID { return s.ID }),
		},
		Operation{
			Name: OpCreateSemester, Kind: KindMutation, Method: http.MethodPost, Path: "/semester",
			Normalize:   decodeOptional[models.Semester],
			Invalidates: combine(static(ListTag(EntitySemester)), paramTag(EntityCurriculum, ParamCurriculumID)),
		},
		Operation{
			Name: OpUpdateSemester, Kind: KindMutation, Method: http.MethodPut, Path: "/semester/{id}",
			Normalize:   decodeOptional[models.Semester],
			Invalidates: combine(paramTag(EntitySemester, ParamID), static(ListTag(EntitySemester))),
		},
		Operation{
			Name: OpDeleteSemester, Kind: KindMutation, Method: http.MethodDelete, Path: "/semester/{id}",
			Normalize:   discardBody,
			Invalidates: combine(paramTag(EntitySemester, ParamID), static(ListTag(EntitySemester))),
		},
		Operation{
			Name: OpGetTemplate, Kind: KindQuery, Path: "/template/{id}",
			Normalize: decodeOne[models.Template],
			Tags:      paramTag(EntityTemplate, ParamID),
		},
		Operation{
			Name: OpListPendingAdoptions, Kind: KindQuery, Path: "/template-adoption/pending",
			Normalize: decodeList[models.TemplateAdoption],
			Tags:      listTags(EntityTemplateAdoption, func(a models.TemplateAdoption) models.ID { return a.ID }),
		},
		Operation{
			Name: OpListAdoptionHistory, Kind: KindQuery, Path: "/template-adoption/history",
			Normalize: decodeList[models.TemplateAdoption],
			Tags:      listTags(EntityTemplateAdoption, func(a models.TemplateAdoption) models.ID { return a.ID }),
		},
		adoptionMutation(OpAdoptTemplate, "adopt"),
		adoptionMutation(OpCustomizeTemplate, "customize", ListTag(EntityMaterial)),
		adoptionMutation(OpSkipTemplate, "skip"),
	)
}

func adoptionMutation(name, action string, extra ...string) Operation {
	return Operation{
		Name: name, Kind: KindMutation, Method: http.MethodPost, Path: "/template-adoption/{id}/" + action,
		Normalize: decodeOptional[models.TemplateAdoption],
		Invalidates: combine(
			paramTag(EntityTemplateAdoption, ParamID),
			static(append([]string{ListTag(EntityTemplateAdoption)}, extra...)...),
		),
	}
}

func static(tags ...string) TagFunc {
	return func(Params, interface{}) []string {
		return append([]string(nil), tags...)
	}
}

// paramTag tags the entity named by a request param. A missing param yields no tag.
func paramTag(entity, param string) TagFunc {
	return func(params Params, _ interface{}) []string {
		if id := params[param]; id != "" {
			return []string{Tag(entity, models.ID(id))}
		}
		return nil
	}
}

// listTags produces one detail tag per item plus the collection tag.
func listTags[T any](entity string, id func(T) models.ID) TagFunc {
	return func(_ Params, payload interface{}) []string {
		tags := []string{ListTag(entity)}
		items, _ := payload.([]T)
		for _, item := range items {
			if itemID := id(item); itemID != "" {
				tags = append(tags, Tag(entity, itemID))
			}
		}
		return tags
	}
}

func combine(fns ...TagFunc) TagFunc {
	return func(params Params, payload interface{}) []string {
		var tags []string
		for _, fn := range fns {
			tags = append(tags, fn(params, payload)...)
		}
		return tags
	}
}
