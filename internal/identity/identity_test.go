package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/domain"
	"github.com/tcmaker/core/internal/identity"
)

func key(kind domain.SourceKind, instance string) domain.IDKey {
	return domain.IDKey{Kind: kind, Instance: instance}
}

func TestMergeIDsNeverOverwrites(t *testing.T) {
	a := domain.IDSet{key(domain.SourceTMDb, "0"): "100"}
	b := domain.IDSet{
		key(domain.SourceTMDb, "0"): "999",
		key(domain.SourceIMDb, "0"): "tt123",
	}

	err := identity.MergeIDs(a, b)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	// a's original value must be untouched.
	assert.Equal(t, "100", a[key(domain.SourceTMDb, "0")])
}

func TestMergeIDsFillsMissing(t *testing.T) {
	a := domain.IDSet{key(domain.SourceTMDb, "0"): "100"}
	b := domain.IDSet{key(domain.SourceIMDb, "0"): "tt123"}

	err := identity.MergeIDs(a, b)
	require.NoError(t, err)
	assert.Equal(t, "100", a[key(domain.SourceTMDb, "0")])
	assert.Equal(t, "tt123", a[key(domain.SourceIMDb, "0")])
}

func TestMergeIDsAgreeingValuesNoConflict(t *testing.T) {
	a := domain.IDSet{key(domain.SourceTMDb, "0"): "100"}
	b := domain.IDSet{key(domain.SourceTMDb, "0"): "100"}

	err := identity.MergeIDs(a, b)
	assert.NoError(t, err)
}

func TestReconcileIDsRecordsDiscarded(t *testing.T) {
	a := domain.IDSet{key(domain.SourceTMDb, "0"): "100"}
	b := domain.IDSet{key(domain.SourceTMDb, "0"): "200"}

	discarded := identity.ReconcileIDs(a, b)
	require.Len(t, discarded, 1)
	assert.Equal(t, "100", discarded[0].Existing)
	assert.Equal(t, "200", discarded[0].Incoming)
	// a keeps its original value rather than being clobbered.
	assert.Equal(t, "100", a[key(domain.SourceTMDb, "0")])
}

func TestIDKeySpecificity(t *testing.T) {
	mostSpecific := domain.IDKey{Kind: domain.SourceEmby, Instance: "0", Library: "Shows"}
	lessSpecific := domain.IDKey{Kind: domain.SourceEmby, Instance: "0"}
	leastSpecific := domain.IDKey{Kind: domain.SourceEmby}

	assert.True(t, mostSpecific.MoreSpecificThan(lessSpecific))
	assert.True(t, lessSpecific.MoreSpecificThan(leastSpecific))
	assert.False(t, leastSpecific.MoreSpecificThan(mostSpecific))
}
