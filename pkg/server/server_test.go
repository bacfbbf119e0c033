package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/feature"
	"github.com/operator-framework/csv-editor/pkg/manifests"
)

func newTestAPI() *API {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAPI(WithLogger(logger))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var view map[string]interface{}
	decode(t, rec, &view)
	id, _ := view["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI()
	id := createSession(t, api)
	base := "/api/v1/sessions/" + id

	rec := do(t, api, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	decode(t, rec, &ids)
	assert.Equal(t, []string{id}, ids)

	rec = do(t, api, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Valid         bool                             `json:"valid"`
		SectionStatus map[status.Section]status.Status `json:"sectionStatus"`
	}
	decode(t, rec, &view)
	assert.False(t, view.Valid)
	assert.Equal(t, status.Empty, view.SectionStatus[status.Metadata])

	rec = do(t, api, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, api.Store().Len())

	rec = do(t, api, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, api, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorCodes(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)

	tests := []struct {
		description string
		method      string
		target      string
		body        string
		code        int
	}{
		{"UnknownSession", http.MethodGet, "/api/v1/sessions/nope/operator", "", http.StatusNotFound},
		{"UnknownSection", http.MethodPost, base + "/sections/bogus/enter", "", http.StatusBadRequest},
		{"CRDsOfNonCRDSection", http.MethodGet, base + "/crds/metadata", "", http.StatusBadRequest},
		{"MissingCRD", http.MethodDelete, base + "/crds/owned-crds/missing", "", http.StatusNotFound},
		{"MalformedBody", http.MethodPut, base + "/metadata", "{", http.StatusBadRequest},
		{"UnknownInstallMode", http.MethodPut, base + "/install-modes/Bogus", `{"supported":true}`, http.StatusBadRequest},
		{"UnknownCatalog", http.MethodGet, "/api/v1/catalogs/bogus", "", http.StatusNotFound},
		{"InvalidPatch", http.MethodPatch, base + "/operator", `{"op":"add"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			rec := do(t, api, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			var resp errorResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestMetadataEditing(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)

	rec := do(t, api, http.MethodPost, base+"/sections/metadata/enter", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, http.MethodPut, base+"/metadata", `{"path":"spec.displayName","value":"etcd","commit":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, api, http.MethodGet, base+"/operator", "")
	assert.NotContains(t, rec.Body.String(), "etcd")

	rec = do(t, api, http.MethodPut, base+"/metadata", `{"path":"spec.displayName","value":"etcd"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	decode(t, rec, &st)
	assert.NotEqual(t, status.Empty, st.Status)

	var doc map[string]interface{}
	decode(t, do(t, api, http.MethodGet, base+"/operator", ""), &doc)
	assert.Equal(t, "etcd", doc["spec"].(map[string]interface{})["displayName"])

	rec = do(t, api, http.MethodPost, base+"/sections/metadata/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, status.Errors, st.Status)

	rec = do(t, api, http.MethodGet, base+"/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var vr ValidateResponse
	decode(t, rec, &vr)
	assert.False(t, vr.Valid)
	assert.NotEmpty(t, vr.Failures)

	rec = do(t, api, http.MethodGet, base+"/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "displayName: etcd")
}

func TestCRDEditing(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)
	placeholder := base + "/crds/owned-crds/" + url.PathEscape("Add Owned CRD")

	rec := do(t, api, http.MethodGet, placeholder, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view CRDView
	decode(t, rec, &view)
	assert.True(t, view.FocusName)

	rec = do(t, api, http.MethodPut, placeholder, `{"path":"name","value":"etcdclusters.etcd.database.coreos.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	assert.Equal(t, "etcdclusters.etcd.database.coreos.com", view.Name)

	crd := base + "/crds/owned-crds/etcdclusters.etcd.database.coreos.com"
	rec = do(t, api, http.MethodPut, crd, `{"path":"kind","value":"EtcdCluster"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &view)
	assert.Equal(t, "EtcdCluster", view.Template.Kind)

	var names []string
	decode(t, do(t, api, http.MethodGet, base+"/crds/owned-crds", ""), &names)
	assert.Equal(t, []string{"etcdclusters.etcd.database.coreos.com"}, names)

	rec = do(t, api, http.MethodPut, crd+"/template", "kind: [")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var tv TemplateView
	decode(t, rec, &tv)
	assert.NotEmpty(t, tv.Error)
	assert.Equal(t, "kind: [", tv.Text)

	rec = do(t, api, http.MethodPut, crd+"/template", "apiVersion: etcd.database.coreos.com/v1beta2\nkind: EtcdCluster\nspec:\n  size: 3\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tv = TemplateView{}
	decode(t, rec, &tv)
	assert.Empty(t, tv.Error)
	assert.Contains(t, tv.Text, "size: 3")

	rec = do(t, api, http.MethodPost, base+"/sections/owned-crds/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, http.MethodDelete, crd, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	decode(t, do(t, api, http.MethodGet, base+"/crds/owned-crds", ""), &names)
	assert.Empty(t, names)
}

func TestPermissionsEditing(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)

	rec := do(t, api, http.MethodPost, base+"/permissions/cluster-permissions/etcd-operator", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, api, http.MethodPut, base+"/permissions/cluster-permissions/etcd-operator/rules",
		`[{"apiGroups":"","resources":["pods"],"verbs":["get","list"]}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc map[string]interface{}
	decode(t, do(t, api, http.MethodGet, base+"/operator", ""), &doc)
	install := doc["spec"].(map[string]interface{})["install"].(map[string]interface{})["spec"].(map[string]interface{})
	perms := install["clusterPermissions"].([]interface{})
	require.Len(t, perms, 1)
	rules := perms[0].(map[string]interface{})["rules"].([]interface{})
	require.Len(t, rules, 1)
	assert.Equal(t, []interface{}{"get", "list"}, rules[0].(map[string]interface{})["verbs"])

	rec = do(t, api, http.MethodPut, base+"/permissions/cluster-permissions/etcd-operator/rules", `[null]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	decode(t, do(t, api, http.MethodGet, base+"/operator", ""), &doc)
	install = doc["spec"].(map[string]interface{})["install"].(map[string]interface{})["spec"].(map[string]interface{})
	rules = install["clusterPermissions"].([]interface{})[0].(map[string]interface{})["rules"].([]interface{})
	assert.Len(t, rules, 1)

	rec = do(t, api, http.MethodDelete, base+"/permissions/cluster-permissions/etcd-operator", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestInstallModesAndExit(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)

	rec := do(t, api, http.MethodPost, base+"/sections/install-modes/apply", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	decode(t, rec, &st)
	assert.Equal(t, status.Errors, st.Status)

	rec = do(t, api, http.MethodPut, base+"/install-modes/AllNamespaces", `{"supported":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, api, http.MethodPost, base+"/sections/install-modes/apply", "")
	decode(t, rec, &st)
	assert.Equal(t, status.Complete, st.Status)

	rec = do(t, api, http.MethodPost, base+"/sections/install-modes/exit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.False(t, st.RolledBack)
	assert.Equal(t, status.Complete, st.Status)
}

func TestPatchOperator(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)

	rec := do(t, api, http.MethodPatch, base+"/operator", `[{"op":"add","path":"/spec","value":{"displayName":"etcd"}}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc map[string]interface{}
	decode(t, do(t, api, http.MethodGet, base+"/operator", ""), &doc)
	assert.Equal(t, "etcd", doc["spec"].(map[string]interface{})["displayName"])

	rec = do(t, api, http.MethodPatch, base+"/operator", `[{"op":"remove","path":"/missing"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManifestUpload(t *testing.T) {
	api := newTestAPI()
	base := "/api/v1/sessions/" + createSession(t, api)
	manifest := "apiVersion: rbac.authorization.k8s.io/v1\nkind: Role\nmetadata:\n  name: etcd-operator\nrules:\n- apiGroups: [\"\"]\n  resources: [pods]\n  verbs: [get]\n"

	rec := do(t, api, http.MethodPost, base+"/manifests", manifest)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, feature.Set(string(feature.ManifestUpload)+"=true"))
	defer func() {
		require.NoError(t, feature.Set(string(feature.ManifestUpload)+"=false"))
	}()

	rec = do(t, api, http.MethodPost, base+"/manifests", manifest)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report manifests.Report
	decode(t, rec, &report)
	require.Len(t, report.Results, 1)
	assert.Equal(t, manifests.Imported, report.Results[0].Outcome)

	rec = do(t, api, http.MethodGet, base+"/operator", "")
	assert.Contains(t, rec.Body.String(), "etcd-operator")
}

func TestCatalogsAndOpenAPI(t *testing.T) {
	api := newTestAPI()

	rec := do(t, api, http.MethodGet, "/api/v1/catalogs/verbs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var verbs []string
	decode(t, rec, &verbs)
	assert.Contains(t, verbs, "watch")

	rec = do(t, api, http.MethodGet, "/api/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		OpenAPI string                 `json:"openapi"`
		Paths   map[string]interface{} `json:"paths"`
	}
	decode(t, rec, &doc)
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	for _, e := range endpoints {
		assert.Contains(t, doc.Paths, e.path)
	}
}
