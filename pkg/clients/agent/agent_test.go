package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	"github.com/NethermindEth/wei/pkg/clients/httpclient"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// fakeBackend 记录请求顺序的 agent 后端
type fakeBackend struct {
	mu           sync.Mutex
	calls        []string
	refreshed    []cachectl.Descriptor
	refreshFails bool
	cached       []cachectl.CachedQueryInfo
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cache/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.record("refresh")
		if b.refreshFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "cache store down"}`))
			return
		}
		var env struct {
			Query cachectl.Descriptor `json:"query"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&env)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.refreshed = append(b.refreshed, env.Query)
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"success": true, "message": "ok", "cache_key": "query:x"}`))
	})
	mux.HandleFunc("/cache", func(w http.ResponseWriter, r *http.Request) {
		b.record("list")
		_ = json.NewEncoder(w).Encode(b.cached)
	})
	mux.HandleFunc("/pre-filter", func(w http.ResponseWriter, r *http.Request) {
		b.record("analyze")
		var req AnalysisRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"structured_response": {"summary": "` + req.Description + `", "score": 7}}`))
	})
	mux.HandleFunc("/community", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			b.record("community_cached")
			if r.URL.Query().Get("topic") == "unknown" {
				_, _ = w.Write([]byte(`null`))
				return
			}
		} else {
			b.record("community")
		}
		_, _ = w.Write([]byte(`{
			"topic": "aave",
			"resources": [
				{"name": "Governance Forum", "link": "https://gov.aave.com", "type": "forum", "description": "", "quality_of_discourse": "deep"},
				{"name": "Aave Discord", "link": "https://discord.gg/aave", "type": "Discord", "description": "", "quality_of_discourse": "casual"}
			],
			"from_cache": true,
			"created_at": "2025-03-01T10:00:00Z",
			"expires_at": "2025-03-02T10:00:00Z"
		}`))
	})
	mux.HandleFunc("/related-proposals", func(w http.ResponseWriter, r *http.Request) {
		b.record("related")
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"related_proposals": [{"url": "https://x", "title": "AIP-1", "relevance_score": 0.9, "source": "exa"}], "query": "` + r.URL.Query().Get("query") + `", "from_cache": false, "cache_key": "query:r"}`))
	})
	mux.HandleFunc("/roadmap", func(w http.ResponseWriter, r *http.Request) {
		b.record("roadmap")
		_, _ = w.Write([]byte(`{"result": {"response": {
			"schema_version": "1.0.0",
			"domain": {"name": "Aave", "kind": "protocol", "scope": "v4", "as_of": "2025-01-01"},
			"streams": ["security"],
			"problems": [{"id": "P1", "title": "oracle risk", "stream": "security", "severity": "High", "horizon": "Now", "exit_criteria": "done"}],
			"interventions": [],
			"sources": []
		}}, "cache_info": null}`))
	})
	return mux
}

func newTestAgent(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	base := httpclient.NewBaseClient(httpclient.Config{
		ServiceName: "agent",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
		MaxRetries:  -1,
	}, log.DefaultLogger)
	return NewClient(base, cachectl.NewClient(base, log.DefaultLogger), log.DefaultLogger)
}

func TestRefreshThenRead(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestAgent(t, backend)

	resp, err := c.Analysis.Refresh(context.Background(), AnalysisRequest{Description: "raise fees"})
	require.NoError(t, err)

	var out struct {
		Summary string `json:"summary"`
		Score   int    `json:"score"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "raise fees", out.Summary)

	assert.Equal(t, []string{"refresh", "analyze"}, backend.Calls())
	require.Len(t, backend.refreshed, 1)
	assert.Equal(t, "/pre-filter", backend.refreshed[0].Endpoint)
	assert.Equal(t, cachectl.AnalysisDescriptor(AnalysisRequest{Description: "raise fees"}).Key(), backend.refreshed[0].Key())
}

func TestRefreshFailureSkipsRead(t *testing.T) {
	backend := &fakeBackend{refreshFails: true}
	c := newTestAgent(t, backend)
	ctx := context.Background()

	_, err := c.Analysis.Refresh(ctx, AnalysisRequest{Description: "raise fees"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCacheProtocolError(err))

	_, err = c.Community.Refresh(ctx, CommunityRequest{Topic: "aave"})
	assert.True(t, apperrors.IsCacheProtocolError(err))

	_, err = c.Related.Refresh(ctx, RelatedRequest{Query: "aave"})
	assert.True(t, apperrors.IsCacheProtocolError(err))

	_, err = c.Roadmap.Refresh(ctx, RoadmapRequest{Subject: "Aave", Kind: "protocol", Scope: "v4"})
	assert.True(t, apperrors.IsCacheProtocolError(err))

	assert.Equal(t, []string{"refresh", "refresh", "refresh", "refresh"}, backend.Calls())
}

func TestGetDoesNotRefresh(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestAgent(t, backend)
	ctx := context.Background()

	community, err := c.Community.Get(ctx, CommunityRequest{Topic: "aave"})
	require.NoError(t, err)
	assert.True(t, community.FromCache)
	assert.Len(t, community.Resources, 2)

	related, err := c.Related.Get(ctx, RelatedRequest{Query: "aave"})
	require.NoError(t, err)
	require.Len(t, related.RelatedProposals, 1)
	require.NotNil(t, related.RelatedProposals[0].RelevanceScore)
	assert.InDelta(t, 0.9, *related.RelatedProposals[0].RelevanceScore, 1e-9)

	roadmap, err := c.Roadmap.Get(ctx, RoadmapRequest{Subject: "Aave", Kind: "protocol", Scope: "v4"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", roadmap.SchemaVersion)
	require.Len(t, roadmap.Problems, 1)
	assert.Equal(t, "High", roadmap.Problems[0].Severity)

	assert.Equal(t, []string{"community", "related", "roadmap"}, backend.Calls())
}

func TestRefreshUsesBackendDescriptors(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestAgent(t, backend)
	ctx := context.Background()

	_, err := c.Community.Refresh(ctx, CommunityRequest{Topic: "aave"})
	require.NoError(t, err)
	_, err = c.Related.Refresh(ctx, RelatedRequest{Query: "aave"})
	require.NoError(t, err)

	require.Len(t, backend.refreshed, 2)
	assert.Equal(t, "POST", backend.refreshed[0].Method)
	assert.Equal(t, "aave", backend.refreshed[0].QueryParams["topic"])
	assert.Equal(t, "related-proposals", backend.refreshed[1].Endpoint)
	assert.Equal(t, "5", backend.refreshed[1].QueryParams["limit"])
}

func TestCachedLookups(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestAgent(t, backend)
	ctx := context.Background()

	resp, err := c.CachedCommunity(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, resp)

	resp, err = c.CachedCommunity(ctx, "aave")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 2025, resp.CreatedAt.Year())

	related, err := c.CachedRelated(ctx, RelatedRequest{Query: "aave"})
	require.NoError(t, err)
	assert.Nil(t, related)
	assert.Equal(t, []string{"community_cached", "community_cached", "list"}, backend.Calls())

	d := cachectl.RelatedProposalsDescriptor("aave", 5)
	backend.mu.Lock()
	backend.cached = []cachectl.CachedQueryInfo{{
		CacheKey:    d.Key(),
		Endpoint:    d.Endpoint,
		Method:      d.Method,
		QueryParams: d.QueryParams,
	}}
	backend.mu.Unlock()

	related, err = c.CachedRelated(ctx, RelatedRequest{Query: "aave"})
	require.NoError(t, err)
	require.NotNil(t, related)
	assert.Equal(t, "aave", related.Query)
}

func TestValidation(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestAgent(t, backend)
	ctx := context.Background()

	_, err := c.Analysis.Get(ctx, AnalysisRequest{Description: "  "})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = c.Related.Refresh(ctx, RelatedRequest{Query: "aave", Limit: 11})
	assert.True(t, apperrors.IsInvalidArgument(err))

	assert.Empty(t, backend.Calls())
}

func TestNewAnalysisRequest(t *testing.T) {
	req := NewAnalysisRequest("Raise cap", "Raise the supply cap to 10M.")
	assert.Equal(t, "Raise cap\n\nRaise the supply cap to 10M.", req.Description)
	assert.NoError(t, validateAnalysis(req))
}

func TestRoadmapRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     RoadmapRequest
		wantErr bool
	}{
		{"Valid", RoadmapRequest{Subject: "Acme DAO", Kind: "DAO", Scope: "treasury"}, false},
		{"ValidWindow", RoadmapRequest{Subject: "Acme", Kind: "company", From: "2024-01-01", To: "2024-12-31"}, false},
		{"MissingSubject", RoadmapRequest{Kind: "protocol"}, true},
		{"UnknownKind", RoadmapRequest{Subject: "Acme", Kind: "dao"}, true},
		{"BadDate", RoadmapRequest{Subject: "Acme", Kind: "other", From: "01/02/2024"}, true},
		{"InvertedWindow", RoadmapRequest{Subject: "Acme", Kind: "other", From: "2024-02-01", To: "2024-01-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsInvalidArgument(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGroupResourcesByType(t *testing.T) {
	resources := []DiscussionResource{
		{Name: "zeta docs", Type: "docs"},
		{Name: "Alpha spec", Type: "Spec"},
		{Name: "Forum", Type: "governance"},
		{Name: "code", Type: "gitlab"},
		{Name: "misc", Type: "WEBINAR"},
	}

	grouped := GroupResourcesByType(resources)
	require.Len(t, grouped["Documentation"], 2)
	assert.Equal(t, "Alpha spec", grouped["Documentation"][0].Name)
	assert.Len(t, grouped["Forum"], 1)
	assert.Len(t, grouped["GitHub"], 1)
	assert.Len(t, grouped["Webinar"], 1)

	assert.Equal(t, "YouTube", NormalizeResourceType(" youtube "))
	assert.Equal(t, "Mailing list", NormalizeResourceType("mailing LIST"))
	assert.Equal(t, "", NormalizeResourceType(""))
}
