package handlers

import (
	"encoding/json"
	"net/http"
)

const apiTitle = "Regional Statistics API"

type object = map[string]interface{}

func jsonBody(schema object) object {
	return object{"content": object{"application/json": object{"schema": schema}}}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func response(description string, schema object) object {
	r := jsonBody(schema)
	r["description"] = description
	return r
}

func errorResponses(codes ...string) object {
	out := object{}
	for _, c := range codes {
		out[c] = response(errorDescriptions[c], ref("Error"))
	}
	return out
}

var errorDescriptions = map[string]string{
	"400": "Malformed or missing parameters",
	"404": "No matching data",
	"409": "Duplicate observation",
	"422": "The model could not be fitted",
	"500": "Unexpected failure",
}

func withResponses(base object, extra object) object {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func queryParam(name, typ, description string) object {
	return object{"name": name, "in": "query", "required": false, "description": description, "schema": object{"type": typ}}
}

var idParam = object{"name": "id", "in": "path", "required": true, "schema": object{"type": "integer"}}

func openAPIDocument() object {
	nullableNumber := object{"type": "number", "nullable": true}
	numberMap := object{"type": "object", "additionalProperties": object{"type": "number"}}

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       apiTitle,
			"description": "Regional socio-economic indicators with regression analysis, prediction and statistical-agency ingestion",
			"version":     "1.0.0",
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/analysis": object{
				"post": object{
					"summary":     "Run a regression analysis",
					"description": "Aligns the requested category series per region and year, fits a linear or degree-2 polynomial model and renders an interpretation",
					"requestBody": jsonBody(ref("AnalysisRequest")),
					"responses": withResponses(object{
						"200": response("Analysis result", ref("AnalysisResponse")),
					}, errorResponses("400", "404", "422", "500")),
				},
			},
			"/api/predict": object{
				"post": object{
					"summary":     "Predict a dependent value",
					"requestBody": jsonBody(ref("PredictionRequest")),
					"responses": withResponses(object{
						"200": response("Point prediction", ref("PredictionResponse")),
					}, errorResponses("400", "404", "422", "500")),
				},
			},
			"/api/categories": object{
				"get": object{
					"summary":   "List categories",
					"responses": object{"200": response("Categories", object{"type": "object"})},
				},
				"post": object{
					"summary":     "Create a category",
					"requestBody": jsonBody(ref("Category")),
					"responses": withResponses(object{
						"201": response("Created category", ref("Category")),
					}, errorResponses("400", "409", "500")),
				},
			},
			"/api/categories/{id}": object{
				"put": object{
					"summary":    "Rename a category",
					"parameters": []object{idParam},
					"responses": withResponses(object{
						"200": response("Renamed category", ref("Category")),
					}, errorResponses("400", "404", "409", "500")),
				},
			},
			"/api/observations": object{
				"get": object{
					"summary": "List observations",
					"parameters": []object{
						queryParam("category_id", "integer", "Filter by category id"),
						queryParam("region", "string", "City name or province_id:regency_id"),
						queryParam("year_from", "integer", "First year, inclusive"),
						queryParam("year_to", "integer", "Last year, inclusive"),
						queryParam("page", "integer", "Page number (default: 1)"),
						queryParam("limit", "integer", "Records per page (default: 100)"),
					},
					"responses": withResponses(object{
						"200": response("Paginated observations", object{"type": "object"}),
					}, errorResponses("400", "500")),
				},
				"post": object{
					"summary":     "Create one observation or a batch",
					"description": "Accepts a single observation or an array. on_duplicate selects reject, update or skip.",
					"parameters":  []object{queryParam("on_duplicate", "string", "reject | update | skip")},
					"requestBody": jsonBody(ref("Observation")),
					"responses": withResponses(object{
						"200": response("Existing observation kept or updated, or batch counts", object{"type": "object"}),
						"201": response("Observation inserted", object{"type": "object"}),
					}, errorResponses("400", "409", "500")),
				},
			},
			"/api/observations/{id}": object{
				"get": object{
					"summary":    "Get an observation",
					"parameters": []object{idParam},
					"responses": withResponses(object{
						"200": response("Observation", ref("Observation")),
					}, errorResponses("404", "500")),
				},
				"put": object{
					"summary":     "Replace an observation",
					"parameters":  []object{idParam},
					"requestBody": jsonBody(ref("Observation")),
					"responses": withResponses(object{
						"200": response("Updated observation", ref("Observation")),
					}, errorResponses("400", "404", "500")),
				},
				"delete": object{
					"summary":    "Delete an observation",
					"parameters": []object{idParam},
					"responses": withResponses(object{
						"204": object{"description": "Deleted"},
					}, errorResponses("404", "500")),
				},
			},
			"/api/ingest/bps": object{
				"post": object{
					"summary":     "Run statistical-agency ingestion",
					"description": "Runs the jobs in the body, or the configured jobs when the body is empty",
					"responses": withResponses(object{
						"200": response("Per-job results", object{"type": "object"}),
					}, errorResponses("400", "500")),
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": object{"description": "Store reachable"},
						"503": object{"description": "Store unreachable"},
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
						},
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"Error": object{
					"type":       "object",
					"properties": object{"error": object{"type": "string"}},
				},
				"AnalysisRequest": object{
					"type":     "object",
					"required": []string{"cities", "regression_type", "analysis_type"},
					"properties": object{
						"cities":               object{"type": "array", "items": object{"type": "string"}},
						"regression_type":      object{"type": "string", "enum": []string{"linear", "non_linear"}},
						"analysis_type":        object{"type": "string", "enum": []string{"single", "multi"}},
						"independent_variable": object{"type": "string"},
						"dependent_variable":   object{"type": "string"},
						"variables":            object{"type": "array", "items": object{"type": "string"}, "description": "Last entry is the dependent variable"},
						"year_from":            object{"type": "integer"},
						"year_to":              object{"type": "integer"},
						"language":             object{"type": "string", "enum": []string{"en", "id"}},
					},
				},
				"AnalysisResponse": object{
					"type": "object",
					"properties": object{
						"analysis_mode":      object{"type": "string", "enum": []string{"single_region", "multi_region"}},
						"regions":            object{"type": "array", "items": object{"type": "string"}},
						"regression_type":    object{"type": "string"},
						"analysis_type":      object{"type": "string"},
						"variables_analyzed": object{"type": "object"},
						"category_names":     object{"type": "object", "additionalProperties": object{"type": "string"}},
						"summary":            object{"type": "string"},
						"details": object{
							"type": "object",
							"properties": object{
								"r_squared":      object{"type": "number"},
								"adj_r_squared":  nullableNumber,
								"coefficients":   numberMap,
								"intercept":      nullableNumber,
								"f_statistic":    nullableNumber,
								"f_pvalue":       nullableNumber,
								"p_values":       object{"type": "object", "additionalProperties": nullableNumber},
								"interpretation": object{"type": "string"},
								"data":           object{"type": "object"},
								"correlations":   object{"type": "object", "additionalProperties": numberMap},
							},
						},
					},
				},
				"PredictionRequest": object{
					"type":     "object",
					"required": []string{"city", "independent_variable", "dependent_variable", "independent_value"},
					"properties": object{
						"city":                 object{"type": "string"},
						"analysis_type":        object{"type": "string", "enum": []string{"single"}},
						"independent_variable": object{"type": "string"},
						"dependent_variable":   object{"type": "string"},
						"independent_value":    object{"type": "number"},
					},
				},
				"PredictionResponse": object{
					"type": "object",
					"properties": object{
						"city":        object{"type": "string"},
						"predictions": object{"type": "object"},
					},
				},
				"Category": object{
					"type": "object",
					"properties": object{
						"id":           object{"type": "integer"},
						"name":         object{"type": "string"},
						"display_name": object{"type": "string", "nullable": true},
					},
				},
				"Observation": object{
					"type": "object",
					"properties": object{
						"id":          object{"type": "integer"},
						"category_id": object{"type": "integer"},
						"year":        object{"type": "integer"},
						"amount":      object{"description": "Number, or a localized string such as \"1.885,42 M\""},
						"city":        object{"type": "string", "nullable": true},
						"province_id": object{"type": "integer", "nullable": true},
						"regency_id":  object{"type": "integer", "nullable": true},
					},
				},
			},
		},
	}
}

// OpenAPISpec serves GET /api/docs/openapi.json
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
