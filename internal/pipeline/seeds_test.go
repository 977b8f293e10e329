package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeeds_DefaultsWhenNoPath(t *testing.T) {
	seeds, err := LoadSeeds("")
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	for _, s := range seeds {
		assert.NotEmpty(t, s.OrgName)
		assert.NotEmpty(t, s.URL)
		assert.Greater(t, s.Confidence, 0.0)
		assert.Greater(t, s.DaysAhead, 0)
	}
}

func TestLoadSeeds_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- org_name: Test Org
  event_name: Test Gala
  url: seed://test-org/test-gala
  confidence: 0.75
  days_ahead: 30
`), 0o644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "Test Org", seeds[0].OrgName)
	assert.InDelta(t, 0.75, seeds[0].Confidence, 0.001)
}

func TestLoadSeeds_MissingFile(t *testing.T) {
	_, err := LoadSeeds(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSeeds_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := LoadSeeds(path)
	assert.Error(t, err)
}

func TestSeedCandidates(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.pipeline.now = fixedNow

	cands := env.pipeline.seedCandidates()
	require.Len(t, cands, len(defaultSeeds))

	for i, cand := range cands {
		assert.True(t, cand.Seed)
		assert.Equal(t, defaultSeeds[i].OrgName, cand.OrgName)
		assert.Equal(t, defaultSeeds[i].EventName, cand.Event.Title)
		require.NotNil(t, cand.Event.Date)
		assert.True(t, cand.Event.Date.After(fixedNow()))
		assert.True(t, cand.Event.HasFutureDate)
		assert.NotEmpty(t, cand.ID)
	}
}
