// Package api/openapi serves the OpenAPI 3.0 description of the HTTP API
// and a Swagger UI page for exploring it.
//
// INTEGRATION POINTS:
// - internal/api/server.go: every route registered in Handler() has a path entry here
// - internal/validation/validator.go: request schemas mirror the validation schemas
// - internal/errors/handlers.go: ErrorResponse matches HTTPErrorHandler.FormatError() output
// - Swagger UI CDN: Uses unpkg.com CDN for Swagger UI assets in handleOpenAPI()
package api

import (
	"encoding/json"
	"net/http"
)

const swaggerHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Pocket Problem API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow: -moz-scrollbars-vertical; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            const ui = SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.presets.standalone
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout"
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the OpenAPI documentation interface
func (s *APIServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(swaggerHTML))
}

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(getOpenAPISpec())
}

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonBody(schema object) object {
	return object{
		"required": true,
		"content":  object{"application/json": object{"schema": schema}},
	}
}

// operation builds an operation whose 200 answer wraps data in APIResponse
func operation(summary string, tag string, data object, extra object) object {
	okSchema := ref("APIResponse")
	if data != nil {
		okSchema = object{"allOf": []interface{}{
			ref("APIResponse"),
			object{"properties": object{"data": data}},
		}}
	}

	op := object{
		"summary": summary,
		"tags":    []string{tag},
		"responses": object{
			"200":     object{"description": "Success", "content": object{"application/json": object{"schema": okSchema}}},
			"default": object{"description": "Error", "content": object{"application/json": object{"schema": ref("ErrorResponse")}}},
		},
	}
	for k, v := range extra {
		op[k] = v
	}
	return op
}

func pathParam(name, description string) []interface{} {
	return []interface{}{object{
		"name": name, "in": "path", "required": true,
		"description": description,
		"schema":      object{"type": "string"},
	}}
}

var queryParam = []interface{}{object{
	"name": "q", "in": "query", "required": false,
	"description": "Fuzzy search query",
	"schema":      object{"type": "string"},
}}

func arrayOf(schema object) object {
	return object{"type": "array", "items": schema}
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() map[string]interface{} {
	idParam := pathParam("id", "Identifier")
	setParam := pathParam("name", "Problem set name")

	return object{
		"openapi": "3.0.3",
		"info": object{
			"title":       "Pocket Problem API",
			"description": "Compile problem markdown and filled templates into LaTeX, and manage a problem library.",
			"version":     "1.0.0",
		},
		"servers": []interface{}{
			object{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/v1/health": object{
				"get": operation("Health check", "System", nil, nil),
			},
			"/api/v1/compile": object{
				"post": operation("Compile markdown source to LaTeX", "Compile", ref("CompileResult"),
					object{"requestBody": jsonBody(ref("CompileRequest"))}),
			},
			"/api/v1/resolve": object{
				"post": operation("Resolve a filled template to LaTeX", "Compile", ref("CompileResult"),
					object{"requestBody": jsonBody(ref("ResolveRequest"))}),
			},
			"/api/v1/preview": object{
				"post": object{
					"summary":     "Render markdown source to PDF with pdflatex",
					"tags":        []string{"Compile"},
					"requestBody": jsonBody(ref("CompileRequest")),
					"responses": object{
						"200":     object{"description": "PDF document", "content": object{"application/pdf": object{"schema": object{"type": "string", "format": "binary"}}}},
						"502":     object{"description": "pdflatex failed", "content": object{"application/json": object{"schema": ref("ErrorResponse")}}},
						"default": object{"description": "Error", "content": object{"application/json": object{"schema": ref("ErrorResponse")}}},
					},
				},
			},
			"/api/v1/templates": object{
				"get": operation("List or search templates", "Templates", arrayOf(ref("Template")),
					object{"parameters": queryParam}),
				"post": operation("Register a user template", "Templates", ref("Template"),
					object{"requestBody": jsonBody(ref("Template"))}),
			},
			"/api/v1/templates/{id}": object{
				"get":    operation("Get a template", "Templates", ref("Template"), object{"parameters": idParam}),
				"delete": operation("Delete a user template", "Templates", nil, object{"parameters": idParam}),
			},
			"/api/v1/templates/{id}/scaffold": object{
				"get": operation("Default fillings for a template", "Templates", ref("Fillings"), object{"parameters": idParam}),
			},
			"/api/v1/problems": object{
				"get": operation("List or search problems", "Problems", arrayOf(ref("Problem")),
					object{"parameters": queryParam}),
				"post": operation("Create a problem", "Problems", ref("Problem"),
					object{"requestBody": jsonBody(ref("Problem"))}),
			},
			"/api/v1/problems/{id}": object{
				"get": operation("Get a problem", "Problems", ref("Problem"), object{"parameters": idParam}),
				"put": operation("Update a problem", "Problems", ref("Problem"),
					object{"parameters": idParam, "requestBody": jsonBody(ref("Problem"))}),
				"delete": operation("Delete a problem", "Problems", nil, object{"parameters": idParam}),
			},
			"/api/v1/problems/{id}/latex": object{
				"get": operation("Compile a problem to LaTeX", "Problems", ref("CompileResult"), object{"parameters": idParam}),
			},
			"/api/v1/sets": object{
				"get": operation("List problem sets", "Sets", arrayOf(ref("ProblemSet")), nil),
				"post": operation("Create or replace a problem set", "Sets", ref("ProblemSet"),
					object{"requestBody": jsonBody(ref("ProblemSet"))}),
			},
			"/api/v1/sets/{name}": object{
				"delete": operation("Delete a problem set", "Sets", nil, object{"parameters": setParam}),
			},
			"/api/v1/sets/{name}/latex": object{
				"get": operation("Compile a problem set to one LaTeX document", "Sets", ref("CompileResult"), object{"parameters": setParam}),
			},
		},
		"components": object{
			"schemas": object{
				"APIResponse": object{
					"type": "object",
					"properties": object{
						"success":   object{"type": "boolean"},
						"data":      object{},
						"message":   object{"type": "string"},
						"timestamp": object{"type": "string", "format": "date-time"},
					},
					"required": []string{"success", "timestamp"},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error": object{
							"type": "object",
							"properties": object{
								"code":      object{"type": "string", "example": "UNKNOWN_TEMPLATE"},
								"message":   object{"type": "string"},
								"details":   object{"type": "string"},
								"context":   object{"type": "object"},
								"timestamp": object{"type": "string", "format": "date-time"},
							},
						},
					},
				},
				"CompileRequest": object{
					"type":       "object",
					"properties": object{"source": object{"type": "string", "example": "#problem A ball is thrown.\n#eq v = v_0 + at"}},
					"required":   []string{"source"},
				},
				"ResolveRequest": object{
					"type": "object",
					"properties": object{
						"template": object{"type": "string", "example": "basic"},
						"fillings": ref("Fillings"),
					},
					"required": []string{"template"},
				},
				"CompileResult": object{
					"type": "object",
					"properties": object{
						"latex":  object{"type": "string"},
						"blocks": arrayOf(ref("Block")),
					},
				},
				"Block": object{
					"type": "object",
					"properties": object{
						"type":    object{"type": "string", "enum": []string{"title", "description", "equation", "question", "solution", "raw", "bullet", "choice", "figure"}},
						"content": object{"type": "string"},
						"index":   object{"type": "integer"},
						"subtype": object{"type": "string", "enum": []string{"single", "aligned"}},
						"label":   object{"type": "string"},
						"ref":     object{"type": "string"},
					},
				},
				"Fillings": object{
					"type":        "object",
					"description": "Slot id to filling: a string, a nested {template, fillings} object, or a list of nested objects",
					"additionalProperties": object{"oneOf": []interface{}{
						object{"type": "string"},
						object{"type": "object", "properties": object{"template": object{"type": "string"}, "fillings": object{"type": "object"}}},
						object{"type": "array", "items": object{"type": "object"}},
					}},
				},
				"Slot": object{
					"type": "object",
					"properties": object{
						"id":       object{"type": "string"},
						"kind":     object{"type": "string", "enum": []string{"text", "equation", "template-ref", "template-ref-list"}},
						"label":    object{"type": "string"},
						"required": object{"type": "boolean"},
						"role":     object{"type": "string"},
						"aligned":  object{"type": "boolean"},
						"default":  object{"type": "string"},
					},
					"required": []string{"id", "kind"},
				},
				"Template": object{
					"type": "object",
					"properties": object{
						"id":          object{"type": "string", "example": "two_equations"},
						"name":        object{"type": "string"},
						"description": object{"type": "string"},
						"slots":       arrayOf(ref("Slot")),
					},
					"required": []string{"id", "slots"},
				},
				"Problem": object{
					"type": "object",
					"properties": object{
						"id":         object{"type": "string", "example": "kinematics-1"},
						"title":      object{"type": "string"},
						"tags":       arrayOf(object{"type": "string"}),
						"template":   object{"type": "string"},
						"fillings":   ref("Fillings"),
						"content":    object{"type": "string"},
						"created_at": object{"type": "string", "format": "date-time"},
						"updated_at": object{"type": "string", "format": "date-time"},
					},
				},
				"ProblemSet": object{
					"type": "object",
					"properties": object{
						"name":        object{"type": "string", "example": "week-1"},
						"title":       object{"type": "string"},
						"problem_ids": arrayOf(object{"type": "string"}),
						"created_at":  object{"type": "string", "format": "date-time"},
						"updated_at":  object{"type": "string", "format": "date-time"},
					},
					"required": []string{"name", "problem_ids"},
				},
			},
		},
	}
}
