package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kestrel-labs/imagerefine/pkg/providers"
	"github.com/kestrel-labs/imagerefine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/kestrel-labs/imagerefine/internal/providers/mock"
)

func TestCachedReachable_CachesAcrossCalls(t *testing.T) {
	cache := registry.NewPluginCache(filepath.Join(t.TempDir(), "cache.json"))

	assert.True(t, cachedReachable(cache, "llm", "test.Blank"))
	meta, ok := cache.Get("llm", "test.Blank")
	require.True(t, ok)
	assert.True(t, meta.Active)
}

func TestSelectionPersistsAcrossLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")

	sel, err := loadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, providers.Selection{}, sel)

	require.NoError(t, saveSelection(path, providers.Selection{LLM: "test.Blank"}))

	reloaded, err := loadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, "test.Blank", reloaded.LLM)
}

func TestProvidersSwitchCmd_PersistsSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	cmd := &ProvidersSwitchCmd{LLM: "test.Blank", StateFile: path}
	require.NoError(t, cmd.Run())

	sel, err := loadSelection(path)
	require.NoError(t, err)
	assert.Equal(t, "test.Blank", sel.LLM)
}

func TestProvidersSwitchCmd_RejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	cmd := &ProvidersSwitchCmd{LLM: "nope.Nope", StateFile: path}
	assert.Error(t, cmd.Run())
}

func TestProvidersListCmd_Run(t *testing.T) {
	cmd := &ProvidersListCmd{CacheFile: filepath.Join(t.TempDir(), "cache.json")}
	require.NoError(t, cmd.Run())
}

func TestSwitchboardRejectsUnknownDirectly(t *testing.T) {
	sb := providers.NewSwitchboard(providers.Selection{}, nil)
	_, err := sb.Switch(context.Background(), providers.Selection{LLM: "definitely.unknown"})
	assert.Error(t, err)
}
