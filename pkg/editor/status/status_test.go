package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

func TestNewTrackerStartsEmpty(t *testing.T) {
	tr := NewTracker()
	for _, s := range Sections {
		assert.Equal(t, Empty, tr.Get(s), s)
	}
	tr.Set(Deployments, Complete)
	tr.Reset()
	assert.Equal(t, Empty, tr.Get(Deployments))
}

func TestCommit(t *testing.T) {
	fields := []string{"spec.displayName", "spec.version"}
	tr := NewTracker()

	errs := validation.Errors{}
	errs.Set("spec.version", validation.Message(validation.SemverErrorMessage))
	assert.Equal(t, Errors, tr.Commit(Metadata, errs, fields))

	errs.Set("spec.version", nil)
	assert.Equal(t, Pending, tr.Commit(Metadata, errs, fields))

	// Errors outside the declared fields do not count.
	errs.Set("metadata.name", validation.Message(validation.RequiredMessage))
	assert.Equal(t, Pending, tr.Commit(Metadata, errs, fields))
}

type exitArgs struct {
	entry  Status
	mutate bool
	during Status
}
type exitWants struct {
	rolledBack bool
	status     Status
}
type exitTest struct {
	description string
	args        exitArgs
	wants       exitWants
}

func TestVisitExit(t *testing.T) {
	tests := []exitTest{
		{
			description: "EnteredEmpty/Unchanged/RollsBack",
			args:        exitArgs{entry: Empty, during: Pending},
			wants:       exitWants{rolledBack: true, status: Empty},
		},
		{
			description: "EnteredEmpty/Changed/Keeps",
			args:        exitArgs{entry: Empty, mutate: true, during: Pending},
			wants:       exitWants{status: Pending},
		},
		{
			description: "EnteredEmpty/Completed/Keeps",
			args:        exitArgs{entry: Empty, during: Complete},
			wants:       exitWants{status: Complete},
		},
		{
			description: "EnteredPending/Unchanged/Keeps",
			args:        exitArgs{entry: Pending, during: Errors},
			wants:       exitWants{status: Errors},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			tr := NewTracker()
			tr.Set(Metadata, tt.args.entry)
			doc := csv.New()
			require.NoError(t, doc.Set("spec.displayName", "etcd"))

			v := tr.Enter(Metadata, doc)
			assert.Equal(t, tt.args.entry, v.EntryStatus())
			if tt.args.mutate {
				require.NoError(t, doc.Set("spec.displayName", "etcd operator"))
			}
			tr.Set(Metadata, tt.args.during)

			assert.Equal(t, tt.wants.rolledBack, v.Exit(doc))
			assert.Equal(t, tt.wants.status, tr.Get(Metadata))
		})
	}
}

func TestParseSection(t *testing.T) {
	s, err := ParseSection("cluster-permissions")
	require.NoError(t, err)
	assert.Equal(t, ClusterPermissions, s)

	_, err = ParseSection("everything")
	require.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	tr := NewTracker()
	all := tr.All()
	all[Metadata] = Complete
	assert.Equal(t, Empty, tr.Get(Metadata))
	assert.Contains(t, tr.String(), "metadata=empty")
}
