package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA ADP Curriculum Gateway",
        "description": "Cached curriculum hierarchy, selection and template adoption over the branch REST API",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Selection", "description": "Curriculum, grade level, class and subject selection"},
        {"name": "Curricula", "description": "Curriculum hierarchy queries and mutations"},
        {"name": "Materials", "description": "Learning materials per subject"},
        {"name": "Semesters", "description": "Semester calendar per curriculum"},
        {"name": "Adoptions", "description": "Template adoption workflow"},
        {"name": "Cache", "description": "Query cache inspection and invalidation"}
    ],
    "paths": {
        "/selection": {
            "get": {
                "tags": ["Selection"],
                "summary": "Current selection",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Selection"],
                "summary": "Clear every selection level",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selection/{level}": {
            "put": {
                "tags": ["Selection"],
                "summary": "Select an entity at a level; lower levels are cleared",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "enum": ["curriculum", "grade-level", "class", "subject"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Orphaned selection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown level", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/selection/effective-curriculum": {
            "get": {
                "tags": ["Selection"],
                "summary": "Resolve the curriculum in effect",
                "parameters": [{"name": "curriculum_id", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selection/breadcrumbs": {
            "get": {
                "tags": ["Selection"],
                "summary": "Breadcrumb trail of the selection",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/curricula": {
            "get": {
                "tags": ["Curricula"],
                "summary": "List curricula",
                "parameters": [{"name": "refresh", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Curricula"],
                "summary": "Create curriculum",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CurriculumRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/curricula/{id}": {
            "get": {
                "tags": ["Curricula"],
                "summary": "Get curriculum",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Curricula"],
                "summary": "Update curriculum",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CurriculumRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Curricula"],
                "summary": "Delete curriculum",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/curricula/{id}/activate": {
            "post": {
                "tags": ["Curricula"],
                "summary": "Activate curriculum",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/curricula/{id}/statistics": {
            "get": {
                "tags": ["Curricula"],
                "summary": "Curriculum statistics",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/curricula/{id}/grade-levels": {
            "get": {
                "tags": ["Curricula"],
                "summary": "Grade levels of a curriculum",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/grade-levels/{id}/classes": {
            "get": {
                "tags": ["Curricula"],
                "summary": "Classes of a grade level",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classes/{id}/subjects": {
            "get": {
                "tags": ["Curricula"],
                "summary": "Subjects of a class",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subjects/{id}/materials": {
            "get": {
                "tags": ["Materials"],
                "summary": "Materials of a subject",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subjects/{id}/materials/reorder": {
            "post": {
                "tags": ["Materials"],
                "summary": "Reorder materials of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReorderMaterialsRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/materials": {
            "post": {
                "tags": ["Materials"],
                "summary": "Create material",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMaterialRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/materials/{id}": {
            "get": {
                "tags": ["Materials"],
                "summary": "Get material",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Materials"],
                "summary": "Update material",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Materials"],
                "summary": "Delete material",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "parameters": [
                    {"name": "curriculum_id", "in": "query", "type": "string"},
                    {"name": "academic_year", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Semesters"],
                "summary": "Create semester",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SemesterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/semesters/{id}": {
            "put": {
                "tags": ["Semesters"],
                "summary": "Update semester",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SemesterRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Semesters"],
                "summary": "Delete semester",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/adoptions": {
            "get": {
                "tags": ["Adoptions"],
                "summary": "Pending adoptions, history and counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/adoptions/sync": {
            "post": {
                "tags": ["Adoptions"],
                "summary": "Reload adoptions from the server",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/adoptions/{id}/adopt": {
            "post": {
                "tags": ["Adoptions"],
                "summary": "Adopt a template as is",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition in flight or not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/adoptions/{id}/customize": {
            "post": {
                "tags": ["Adoptions"],
                "summary": "Adopt a template with customization notes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CustomizeAdoptionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/adoptions/{id}/skip": {
            "post": {
                "tags": ["Adoptions"],
                "summary": "Skip a template",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/adoptions/history/export": {
            "get": {
                "tags": ["Adoptions"],
                "summary": "Export adoption history",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "Attachment", "schema": {"type": "file"}}}
            }
        },
        "/cache/freshness": {
            "get": {
                "tags": ["Cache"],
                "summary": "Cache freshness of a query",
                "parameters": [{"name": "operation", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/cache/invalidate": {
            "post": {
                "tags": ["Cache"],
                "summary": "Invalidate cache tags",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InvalidateCacheRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/cache": {
            "delete": {
                "tags": ["Cache"],
                "summary": "Drop every cached entry",
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "SelectRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "x-nullable": true},
                "parent_id": {"type": "string"}
            }
        },
        "CurriculumRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "year": {"type": "integer"},
                "description": {"type": "string"}
            },
            "required": ["name", "year"]
        },
        "CreateMaterialRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "curriculum_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "sequence": {"type": "integer"},
                "status": {"type": "string", "enum": ["draft", "published", "archived"]},
                "file_url": {"type": "string"}
            },
            "required": ["subject_id", "title"]
        },
        "ReorderMaterialsRequest": {
            "type": "object",
            "properties": {
                "material_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["material_ids"]
        },
        "SemesterRequest": {
            "type": "object",
            "properties": {
                "curriculum_id": {"type": "string"},
                "name": {"type": "string"},
                "academic_year": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "is_active": {"type": "boolean"}
            },
            "required": ["curriculum_id", "name", "academic_year"]
        },
        "CustomizeAdoptionRequest": {
            "type": "object",
            "properties": {
                "customization_notes": {"type": "string"}
            },
            "required": ["customization_notes"]
        },
        "InvalidateCacheRequest": {
            "type": "object",
            "properties": {
                "tags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["tags"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "remote_code": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
