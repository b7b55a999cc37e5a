package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s.Get())
	assert.Equal(t, []string{"30%", "70%"}, s.Get().SplitterSizes)
	assert.Equal(t, Horizontal, s.Get().SplitterLayout)
	assert.Equal(t, "apps", s.Get().TabKey)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.SetSizes([]string{"40%", "60%"})
	require.NoError(t, err)
	_, err = s.SetTab("syslog")
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Layout{SplitterSizes: []string{"40%", "60%"}, SplitterLayout: Horizontal, TabKey: "syslog"}, reopened.Get())
}

func TestStore_ToggleLayout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)

	l, err := s.ToggleLayout()
	require.NoError(t, err)
	assert.Equal(t, Vertical, l.SplitterLayout)

	l, err = s.ToggleLayout()
	require.NoError(t, err)
	assert.Equal(t, Horizontal, l.SplitterLayout)
}

func TestStore_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.SetSizes([]string{"100%"})
	assert.Error(t, err)
	_, err = s.Set(Layout{SplitterLayout: "diagonal"})
	assert.Error(t, err)
	assert.Equal(t, Default(), s.Get(), "failed updates leave the layout unchanged")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	l := s.Get()
	l.SplitterSizes[0] = "99%"
	assert.Equal(t, "30%", s.Get().SplitterSizes[0])
}

func TestOpen_PartialFileFilledWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("splitterLayout: vertical\n"), 0o644))
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, Vertical, s.Get().SplitterLayout)
	assert.Equal(t, "apps", s.Get().TabKey)

	require.NoError(t, os.WriteFile(path, []byte("splitterLayout: [\n"), 0o644))
	_, err = Open(path)
	assert.Error(t, err)
}
