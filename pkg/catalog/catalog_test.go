package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWildcardsLeadTheLists(t *testing.T) {
	assert.Equal(t, "*", Resources[0])
	assert.Equal(t, "*", Verbs[0])
}

func TestNormalizeCapability(t *testing.T) {
	assert.Equal(t, "Deep Insights", NormalizeCapability("Deep Insights"))
	assert.Equal(t, "Basic Install", NormalizeCapability("deep insights"))
	assert.Equal(t, "Basic Install", NormalizeCapability(""))
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		v, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, v, name)
	}
	_, ok := Lookup("colours")
	assert.False(t, ok)

	all := All()
	assert.Len(t, all.Categories, 12)
	assert.Len(t, all.InstallModes, 4)
}
