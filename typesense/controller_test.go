package typesense

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerApplyRetargetsNextSearch(t *testing.T) {
	fake := &fakeTypesense{t: t, docs: widgetDocs()}
	adapter, _ := newTestAdapter(t, fake, nil)
	controller := NewController(adapter, nil)

	adapter.Search(context.Background(), SearchRequest{Keywords: "widget"})
	assert.Equal(t, 1, fake.schemaCalls)
	assert.Contains(t, fake.searchPaths[len(fake.searchPaths)-1], "/collections/products/")

	collection := "catalog_v2"
	status := controller.Apply(ConfigPatch{Collection: &collection})
	assert.Equal(t, "catalog_v2", status.Collection)

	adapter.Search(context.Background(), SearchRequest{Keywords: "widget"})

	// the client was rebuilt against the new collection and the cached
	// query-field list was re-resolved
	assert.Contains(t, fake.searchPaths[len(fake.searchPaths)-1], "/collections/catalog_v2/")
	assert.Equal(t, 2, fake.schemaCalls)
}

func TestControllerApplyPartialPatch(t *testing.T) {
	adapter := NewAdapter(Config{
		Host:       "search.example.com",
		Protocol:   "https",
		Port:       443,
		APIKey:     "original-key",
		Collection: "products",
	})
	controller := NewController(adapter, nil)

	port := 8108
	protocol := "http"
	status := controller.Apply(ConfigPatch{Port: &port, Protocol: &protocol})

	assert.Equal(t, "search.example.com", status.Host)
	assert.Equal(t, "http", status.Protocol)
	assert.Equal(t, 8108, status.Port)
	assert.Equal(t, "products", status.Collection)
	assert.Equal(t, len("original-key"), status.KeyLength)

	cfg := adapter.Config()
	assert.Equal(t, "original-key", cfg.APIKey)
}

func TestConfigStatusNeverCarriesKey(t *testing.T) {
	adapter := NewAdapter(Config{Host: "h", APIKey: "super-secret-key", Collection: "products"})
	controller := NewController(adapter, nil)

	status := controller.Apply(ConfigPatch{})
	data, err := json.Marshal(status)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "super-secret-key")
	assert.Contains(t, string(data), `"keyLength":16`)
}

func TestConfigToolAppliesPatch(t *testing.T) {
	adapter := NewAdapter(Config{Host: "h", APIKey: "k", Collection: "products"})
	controller := NewController(adapter, nil)

	tool := controller.ConfigTool()
	result, err := tool.Call(context.Background(), map[string]interface{}{
		"collection":  "catalog_v2",
		"queryFields": []interface{}{"name", "brand"},
	})
	require.NoError(t, err)

	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, out["applied"])
	assert.Equal(t, 1, out["keyLength"])

	cfg := adapter.Config()
	assert.Equal(t, "catalog_v2", cfg.Collection)
	assert.Equal(t, []string{"name", "brand"}, cfg.QueryFields)
}

func TestHealthConnected(t *testing.T) {
	fake := &fakeTypesense{t: t, docs: widgetDocs()}
	adapter, _ := newTestAdapter(t, fake, nil)
	controller := NewController(adapter, nil)

	health := controller.Health(context.Background())

	assert.True(t, health.Connected)
	assert.NotEmpty(t, health.Fields)
	assert.Empty(t, health.Error)
	assert.Equal(t, "products", health.Collection)
}

func TestHealthBackendDown(t *testing.T) {
	fake := &fakeTypesense{t: t}
	adapter, ts := newTestAdapter(t, fake, nil)
	ts.Close()
	controller := NewController(adapter, nil)

	health := controller.Health(context.Background())

	assert.False(t, health.Connected)
	assert.NotEmpty(t, health.Error)
}

func TestHealthNotConfigured(t *testing.T) {
	adapter := NewAdapter(Config{Collection: "products"})
	controller := NewController(adapter, nil)

	health := controller.Health(context.Background())

	assert.False(t, health.Connected)
	assert.Contains(t, health.Error, "host is not configured")
}

func TestHealthFallsBackToIntrospection(t *testing.T) {
	fake := &fakeTypesense{
		t:    t,
		docs: widgetDocs(),
		allowSearch: func(url.Values) bool {
			return false
		},
	}
	adapter, _ := newTestAdapter(t, fake, nil)
	controller := NewController(adapter, nil)

	health := controller.Health(context.Background())

	// the probe query fails, schema introspection settles connectivity
	assert.True(t, health.Connected)
	assert.NotEmpty(t, health.Error)
}

func TestDedupeFold(t *testing.T) {
	ids := dedupeFold([]string{" A-1 ", "a-1", "", "B-2", "A-1", "b-2"})
	assert.Equal(t, []string{"A-1", "B-2"}, ids)
}

func TestFilterEquals(t *testing.T) {
	assert.Equal(t, "sku:=`A-1`", filterEquals("sku", "A-1"))
	assert.Equal(t, "objectID:=[`A-1`,`B-2`]", filterEquals("objectID", "A-1", "B-2"))
}

func TestHealthToolReportsStatus(t *testing.T) {
	fake := &fakeTypesense{t: t, docs: widgetDocs()}
	adapter, _ := newTestAdapter(t, fake, nil)
	controller := NewController(adapter, nil)

	tool := controller.HealthTool()
	result, err := tool.Call(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	health, ok := result.(HealthStatus)
	require.True(t, ok)
	assert.True(t, health.Connected)
	assert.True(t, strings.HasPrefix(health.Protocol, "http"))
}
