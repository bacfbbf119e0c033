package server

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/operator-framework/csv-editor/pkg/catalog"
	"github.com/operator-framework/csv-editor/pkg/editor/rows"
	"github.com/operator-framework/csv-editor/pkg/editor/summary"
	"github.com/operator-framework/csv-editor/pkg/manifests"
	"github.com/operator-framework/csv-editor/pkg/version"
)

var pathParamRe = regexp.MustCompile(`{([^}]+)}`)

type endpoint struct {
	method      string
	path        string
	tag         string
	summary     string
	operationID string
	request     reflect.Type
	response    reflect.Type
	status      int
}

var (
	typeOfObject = reflect.TypeOf(map[string]interface{}{})
	typeOfList   = reflect.TypeOf([]interface{}{})
	typeOfString = reflect.TypeOf("")
	typeOfIDs    = reflect.TypeOf([]string{})
)

var endpoints = []endpoint{
	{http.MethodGet, "/api/v1/catalogs", "Catalogs", "List every catalog", "listCatalogs", nil, reflect.TypeOf(catalog.Catalog{}), http.StatusOK},
	{http.MethodGet, "/api/v1/catalogs/{catalog}", "Catalogs", "Get one catalog", "getCatalog", nil, typeOfList, http.StatusOK},

	{http.MethodGet, "/api/v1/sessions", "Sessions", "List session ids", "listSessions", nil, typeOfIDs, http.StatusOK},
	{http.MethodPost, "/api/v1/sessions", "Sessions", "Create a session", "createSession", nil, reflect.TypeOf(SessionView{}), http.StatusCreated},
	{http.MethodGet, "/api/v1/sessions/{sessionID}", "Sessions", "Get a session", "getSession", nil, reflect.TypeOf(SessionView{}), http.StatusOK},
	{http.MethodDelete, "/api/v1/sessions/{sessionID}", "Sessions", "Delete a session", "deleteSession", nil, nil, http.StatusNoContent},
	{http.MethodPost, "/api/v1/sessions/{sessionID}/reset", "Sessions", "Reset a session", "resetSession", nil, reflect.TypeOf(SessionView{}), http.StatusOK},

	{http.MethodGet, "/api/v1/sessions/{sessionID}/operator", "Operator", "Get the operator document", "getOperator", nil, typeOfObject, http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/operator", "Operator", "Replace the operator document", "putOperator", typeOfObject, reflect.TypeOf(SessionView{}), http.StatusOK},
	{http.MethodPatch, "/api/v1/sessions/{sessionID}/operator", "Operator", "Apply a JSON patch to the operator document", "patchOperator", typeOfList, reflect.TypeOf(SessionView{}), http.StatusOK},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/preview", "Operator", "Render the operator document as YAML", "previewOperator", nil, typeOfString, http.StatusOK},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/summary", "Operator", "Summarize the operator", "summarizeOperator", nil, reflect.TypeOf(summary.Operator{}), http.StatusOK},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/validate", "Operator", "Validate the operator document", "validateOperator", nil, reflect.TypeOf(ValidateResponse{}), http.StatusOK},
	{http.MethodPost, "/api/v1/sessions/{sessionID}/manifests", "Operator", "Import Kubernetes manifests", "importManifests", typeOfString, reflect.TypeOf(manifests.Report{}), http.StatusOK},

	{http.MethodPost, "/api/v1/sessions/{sessionID}/sections/{section}/enter", "Sections", "Enter a section", "enterSection", nil, reflect.TypeOf(StatusResponse{}), http.StatusOK},
	{http.MethodPost, "/api/v1/sessions/{sessionID}/sections/{section}/apply", "Sections", "Apply a section", "applySection", nil, reflect.TypeOf(StatusResponse{}), http.StatusOK},
	{http.MethodPost, "/api/v1/sessions/{sessionID}/sections/{section}/exit", "Sections", "Leave a section", "exitSection", nil, reflect.TypeOf(StatusResponse{}), http.StatusOK},

	{http.MethodPut, "/api/v1/sessions/{sessionID}/metadata", "Metadata", "Update a metadata field", "updateMetadata", reflect.TypeOf(FieldUpdate{}), reflect.TypeOf(StatusResponse{}), http.StatusOK},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/metadata/errors", "Metadata", "List visible metadata errors", "metadataErrors", nil, typeOfObject, http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/deployments", "Deployments", "Replace the deployments", "putDeployments", typeOfList, reflect.TypeOf(StatusResponse{}), http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/install-modes/{mode}", "Install modes", "Toggle an install mode", "putInstallMode", reflect.TypeOf(SupportedRequest{}), reflect.TypeOf(StatusResponse{}), http.StatusOK},

	{http.MethodGet, "/api/v1/sessions/{sessionID}/crds/{section}", "CRDs", "List CRD names", "listCRDs", nil, typeOfIDs, http.StatusOK},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/crds/{section}/{name}", "CRDs", "Open a CRD", "getCRD", nil, reflect.TypeOf(CRDView{}), http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/crds/{section}/{name}", "CRDs", "Update a CRD field", "updateCRD", reflect.TypeOf(FieldUpdate{}), reflect.TypeOf(CRDView{}), http.StatusOK},
	{http.MethodDelete, "/api/v1/sessions/{sessionID}/crds/{section}/{name}", "CRDs", "Remove a CRD", "deleteCRD", nil, nil, http.StatusNoContent},
	{http.MethodGet, "/api/v1/sessions/{sessionID}/crds/{section}/{name}/template", "CRDs", "Get the example of a CRD", "getTemplate", nil, reflect.TypeOf(TemplateView{}), http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/crds/{section}/{name}/template", "CRDs", "Replace the example of a CRD", "putTemplate", typeOfString, reflect.TypeOf(TemplateView{}), http.StatusOK},

	{http.MethodPost, "/api/v1/sessions/{sessionID}/permissions/{section}/{serviceAccount}", "Permissions", "Add a service account", "addServiceAccount", nil, reflect.TypeOf(StatusResponse{}), http.StatusCreated},
	{http.MethodDelete, "/api/v1/sessions/{sessionID}/permissions/{section}/{serviceAccount}", "Permissions", "Remove a service account", "removeServiceAccount", nil, reflect.TypeOf(StatusResponse{}), http.StatusOK},
	{http.MethodPut, "/api/v1/sessions/{sessionID}/permissions/{section}/{serviceAccount}/rules", "Permissions", "Replace the rules of a service account", "putRules", reflect.TypeOf([]*rows.RuleRow{}), reflect.TypeOf(StatusResponse{}), http.StatusOK},
}

var (
	openAPIOnce sync.Once
	openAPIDoc  *openapi3.T
)

// OpenAPI returns the description of the API.
func OpenAPI() *openapi3.T {
	openAPIOnce.Do(func() {
		openAPIDoc = buildOpenAPISpec()
	})
	return openAPIDoc
}

func buildOpenAPISpec() *openapi3.T {
	v := version.EditorVersion
	if v == "" {
		v = "dev"
	}
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "csv-editor API",
			Description: "Edit ClusterServiceVersion documents section by section",
			Version:     v,
		},
		Paths: &openapi3.Paths{},
	}

	tags := map[string]bool{}
	for _, e := range endpoints {
		if !tags[e.tag] {
			tags[e.tag] = true
			spec.Tags = append(spec.Tags, &openapi3.Tag{Name: e.tag, Description: e.tag + " endpoints"})
		}

		op := &openapi3.Operation{
			Tags:        []string{e.tag},
			Summary:     e.summary,
			OperationID: e.operationID,
			Parameters:  pathParams(e.path),
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(e.status, responseRef(e.response, e.summary)),
				openapi3.WithStatus(http.StatusBadRequest, responseRef(reflect.TypeOf(errorResponse{}), "Bad request")),
				openapi3.WithStatus(http.StatusNotFound, responseRef(reflect.TypeOf(errorResponse{}), "Not found")),
			),
		}
		if e.request != nil {
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(schemaFromType(e.request)),
			}
		}

		item := spec.Paths.Value(e.path)
		if item == nil {
			item = &openapi3.PathItem{}
		}
		item.SetOperation(e.method, op)
		spec.Paths.Set(e.path, item)
	}
	return spec
}

func responseRef(t reflect.Type, description string) *openapi3.ResponseRef {
	resp := &openapi3.Response{Description: ptr(description)}
	if t != nil {
		resp.Content = openapi3.NewContentWithJSONSchemaRef(schemaFromType(t))
	}
	return &openapi3.ResponseRef{Value: resp}
}

func pathParams(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, m := range pathParamRe.FindAllStringSubmatch(path, -1) {
		params = append(params, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     m[1],
				In:       "path",
				Required: true,
				Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		})
	}
	return params
}

func schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}
	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	case reflect.Slice:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: schemaFromType(t.Elem()),
		}}
	case reflect.Map:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Schema: schemaFromType(t.Elem())},
		}}
	case reflect.Struct:
		return structToSchema(t)
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

// structToSchema walks the JSON fields of t. Structs without exported
// fields marshal themselves and are described as free-form objects.
func structToSchema(t reflect.Type) *openapi3.SchemaRef {
	properties := openapi3.Schemas{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			if tag == "-" {
				continue
			}
			if parts := strings.Split(tag, ","); parts[0] != "" {
				name = parts[0]
			}
		}
		properties[name] = schemaFromType(field.Type)
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: properties,
	}}
}

func ptr(s string) *string {
	return &s
}

func (a *API) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, OpenAPI())
}
