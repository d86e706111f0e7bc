package cachectl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/wei/pkg/clients/httpclient"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := httpclient.NewBaseClient(httpclient.Config{
		ServiceName: "agent",
		BaseURL:     srv.URL,
		APIKey:      "secret",
		Timeout:     time.Second,
		MaxRetries:  -1,
	}, log.DefaultLogger)
	return NewClient(base, log.DefaultLogger)
}

func TestDescriptorKey(t *testing.T) {
	a := RelatedProposalsDescriptor("aave", 5)
	b := NewDescriptor(http.MethodGet, "related-proposals").WithParam("limit", "5").WithParam("query", "aave")
	assert.Equal(t, a.Key(), b.Key())
	assert.Contains(t, a.Key(), "query:")
	assert.Len(t, a.Key(), len("query:")+64)

	c := RelatedProposalsDescriptor("aave", 10)
	assert.NotEqual(t, a.Key(), c.Key())

	// 结构体和 map 形式的 body 序列化后一致
	type body struct {
		Description string `json:"description"`
	}
	assert.Equal(t,
		AnalysisDescriptor(map[string]string{"description": "a <b> & c"}).Key(),
		AnalysisDescriptor(body{Description: "a <b> & c"}).Key())
	assert.NotEqual(t, CommunityDescriptor("dao").Key(), CommunityLookupDescriptor("dao").Key())

	assert.NotEqual(t, a.Key(), a.WithUserContext("u1").Key())
}

func TestDescriptorKeyMatchesBackend(t *testing.T) {
	assert.Equal(t,
		"query:3bb4d7db257799ebfcff361ca6a94377ed59a07a44bc52cd1bbe28b877a82baf",
		RelatedProposalsDescriptor("aave", 5).Key())
	assert.Equal(t,
		"query:218af13bd605bacccecb04b78894d4c601c57d4346e35114adabed688995c8e4",
		AnalysisDescriptor(map[string]string{"description": "a <b> & c"}).Key())
}

func TestDescriptorDescription(t *testing.T) {
	assert.Equal(t, "GET related-proposals?limit=5&query=aave", RelatedProposalsDescriptor("aave", 5).Description())
	assert.Equal(t, "POST /pre-filter", AnalysisDescriptor(map[string]string{"description": "x"}).Description())
}

func TestDescriptorWithParamCopies(t *testing.T) {
	base := NewDescriptor(http.MethodGet, "/community")
	withTopic := base.WithParam("topic", "dao")

	assert.Empty(t, base.QueryParams)
	assert.Equal(t, "dao", withTopic.QueryParams["topic"])
}

func TestDescriptorJSON(t *testing.T) {
	raw, err := json.Marshal(Descriptor{Endpoint: "/pre-filter", Method: "POST"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"endpoint":"/pre-filter","method":"POST","query_params":{}}`, string(raw))
}

func TestClientOperations(t *testing.T) {
	var refreshed Descriptor
	mux := http.NewServeMux()
	mux.HandleFunc("/cache", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(httpclient.HeaderAPIKey))
		_, _ = w.Write([]byte(`[{
			"cache_key": "query:abc",
			"description": "GET related-proposals?limit=5&query=aave",
			"endpoint": "related-proposals",
			"method": "GET",
			"created_at": "2025-01-01T00:00:00Z",
			"expires_at": "2025-01-02T00:00:00Z",
			"query_params": {"query": "aave", "limit": "5"}
		}]`))
	})
	mux.HandleFunc("/cache/refresh", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var env struct {
			Query Descriptor `json:"query"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&env)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		refreshed = env.Query
		_, _ = w.Write([]byte(`{"success": true, "message": "refreshed", "cache_key": "query:abc"}`))
	})
	mux.HandleFunc("/cache/invalidate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "message": "not cached", "cache_key": "query:def"}`))
	})
	mux.HandleFunc("/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_entries": 10, "active_entries": 7, "expired_entries": 3}`))
	})
	mux.HandleFunc("/cache/cleanup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"cleaned_entries": 3, "message": "Cleaned up 3 expired cache entries"}`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	entries, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "related-proposals", entries[0].Endpoint)
	assert.Equal(t, 2025, entries[0].CreatedAt.Year())

	found, err := c.Find(ctx, RelatedProposalsDescriptor("aave", 5))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "query:abc", found.CacheKey)

	found, err = c.Find(ctx, RelatedProposalsDescriptor("aave", 6))
	require.NoError(t, err)
	assert.Nil(t, found)

	resp, err := c.Refresh(ctx, RelatedProposalsDescriptor("aave", 5))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "related-proposals", refreshed.Endpoint)
	assert.Equal(t, "5", refreshed.QueryParams["limit"])

	// success=false 不是协议错误
	resp, err = c.Invalidate(ctx, CommunityDescriptor("dao"))
	require.NoError(t, err)
	assert.False(t, resp.Success)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.ActiveEntries)

	cleaned, err := c.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleaned.CleanedEntries)
}

func TestClientErrorsPropagate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "database unavailable"}`))
	}))
	ctx := context.Background()

	_, err := c.Refresh(ctx, AnalysisDescriptor(map[string]string{"description": "x"}))
	require.Error(t, err)
	assert.True(t, apperrors.IsCacheProtocolError(err))
	assert.Contains(t, err.Error(), "database unavailable")

	_, err = c.List(ctx)
	assert.True(t, apperrors.IsCacheProtocolError(err))

	_, err = c.Stats(ctx)
	assert.True(t, apperrors.IsCacheProtocolError(err))
}
