package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/csv-editor/pkg/csv"
)

const etcd = `metadata:
  name: etcdoperator.v0.9.4-beta
  annotations:
    capabilities: Full Lifecycle
    categories: "Database, Big Data"
    createdAt: "2019-02-13 18:00:00"
    description: Creates and maintains highly-available etcd clusters
    alm-examples: '[{"kind":"EtcdCluster","spec":{"size":3}}]'
spec:
  version: 0.9.4-beta
  provider:
    name: CNCF
  icon:
  - base64data: aGk=
    mediatype: image/png
  maintainers:
  - name: etcd
    email: etcd-dev@googlegroups.com
  installModes:
  - type: OwnNamespace
    supported: true
  - type: AllNamespaces
    supported: true
  customresourcedefinitions:
    owned:
    - name: etcdclusters.etcd.database.coreos.com
      kind: EtcdCluster
      displayName: etcd Cluster
    - kind: EtcdBackup
`

func TestSummarize(t *testing.T) {
	doc, err := csv.FromYAML([]byte(etcd))
	require.NoError(t, err)

	op, err := Summarize(doc)
	require.NoError(t, err)

	assert.Equal(t, "etcdoperator", op.ID)
	assert.Equal(t, "etcdoperator.v0.9.4-beta", op.DisplayName)
	assert.Equal(t, "Creates and maintains highly-available etcd clusters", op.LongDescription)
	assert.Equal(t, "data:image/png;base64,aGk=", op.ImageURL)
	assert.Equal(t, "CNCF", op.Provider)
	assert.Equal(t, "0.9.4beta", op.VersionForCompare)
	require.NotNil(t, op.SemVer)
	assert.Equal(t, uint64(9), op.SemVer.Minor)
	assert.Equal(t, "Full Lifecycle", op.CapabilityLevel)
	assert.Equal(t, []string{"Database", "Big Data"}, op.Categories)
	require.NotNil(t, op.CreatedAt)
	assert.Equal(t, 2019, op.CreatedAt.Year())
	assert.True(t, op.Global)
	require.Len(t, op.Maintainers, 1)
	assert.Equal(t, "etcd-dev@googlegroups.com", op.Maintainers[0].Email)

	require.Len(t, op.CRDs, 2)
	assert.Equal(t, "etcd Cluster", op.CRDs[0].DisplayName)
	assert.Equal(t, float64(3), op.CRDs[0].Example["spec"].(map[string]interface{})["size"])
	assert.Equal(t, "Name Not Available", op.CRDs[1].Name)
	assert.Equal(t, "No description available", op.CRDs[1].Description)
	assert.Nil(t, op.CRDs[1].Example)
}

func TestSummarizeEmptyDocument(t *testing.T) {
	op, err := Summarize(csv.New())
	require.NoError(t, err)
	assert.Equal(t, "Basic Install", op.CapabilityLevel)
	assert.Empty(t, op.CRDs)
	assert.False(t, op.Global)
	assert.Nil(t, op.SemVer)
}

func TestSummarizeRejectsMalformedFields(t *testing.T) {
	doc := csv.New()
	require.NoError(t, doc.Set("spec.installModes", "everything"))
	_, err := Summarize(doc)
	require.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "plain", ID("plain"))
	assert.Equal(t, "1.0.0alpha.1", VersionForCompare("1.0.0-Alpha.1"))
}
