package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// fakeQdrant implements just enough of the REST API for one collection.
type fakeQdrant struct {
	mu        sync.Mutex
	exists    bool
	size      int
	points    map[string]point
	order     []string
	textIndex string
	requests  []string
	apiKeys   []string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{points: make(map[string]point)}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	path := strings.TrimPrefix(r.URL.Path, "/collections/attractions")
	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"result": v, "status": "ok"})
	}

	switch {
	case r.Method == http.MethodPut && path == "":
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.exists, f.size = true, body.Vectors.Size
		f.points = make(map[string]point)
		f.order = nil
		write(true)

	case r.Method == http.MethodDelete && path == "":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		f.exists = false
		write(true)

	case !f.exists:
		http.NotFound(w, r)

	case r.Method == http.MethodGet && path == "":
		n := len(f.points)
		write(map[string]any{
			"status":       "green",
			"points_count": n,
			"config":       map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.size}}},
		})

	case r.Method == http.MethodPut && path == "/points":
		var body struct {
			Points []point `json:"points"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			if _, ok := f.points[p.ID]; !ok {
				f.order = append(f.order, p.ID)
			}
			f.points[p.ID] = p
		}
		write(map[string]any{"status": "completed"})

	case r.Method == http.MethodPost && path == "/points/search":
		var body struct {
			Limit int `json:"limit"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		var out []map[string]any
		for i, id := range f.order {
			if i >= body.Limit {
				break
			}
			out = append(out, map[string]any{"id": id, "score": 1.0 - float64(i)*0.1, "payload": f.points[id].Payload})
		}
		write(out)

	case r.Method == http.MethodPost && path == "/points/scroll":
		var body struct {
			Filter struct {
				Should []struct {
					Key   string `json:"key"`
					Match struct {
						Text string `json:"text"`
					} `json:"match"`
				} `json:"should"`
			} `json:"filter"`
			Limit int `json:"limit"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		var out []map[string]any
		for _, id := range f.order {
			p := f.points[id]
			for _, cond := range body.Filter.Should {
				if strings.Contains(strings.ToLower(p.Payload.Content), cond.Match.Text) {
					out = append(out, map[string]any{"id": id, "payload": p.Payload})
					break
				}
			}
			if len(out) >= body.Limit {
				break
			}
		}
		write(map[string]any{"points": out, "next_page_offset": nil})

	case r.Method == http.MethodPost && path == "/points/count":
		write(map[string]any{"count": len(f.points)})

	case r.Method == http.MethodPut && path == "/index":
		var body struct {
			FieldName string `json:"field_name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.textIndex = body.FieldName
		write(map[string]any{"status": "completed"})

	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewClient(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "attractions"}), fake
}

func records() []domain.EmbeddingRecord {
	zero, one := 0, 1
	return []domain.EmbeddingRecord{
		{
			ID:     "attractions_le_morne_0",
			Vector: []float32{1, 0, 0},
			Payload: domain.Metadata{
				Type: "beach", Title: "Le Morne", Content: "Kite surfing beach under the mountain",
				ChunkIndex: &zero, SourceFile: "attractions.json", Region: "Black River", DocumentID: "le_morne",
			},
		},
		{
			ID:     "attractions_le_morne_1",
			Vector: []float32{0, 1, 0},
			Payload: domain.Metadata{
				Type: "beach", Title: "Le Morne", Content: "UNESCO heritage site",
				ChunkIndex: &one, SourceFile: "attractions.json", DocumentID: "le_morne",
			},
		},
	}
}

func TestClient_Lifecycle(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetCollection(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCollectionNotFound))
	var idxErr *domain.IndexUnavailableError
	assert.True(t, errors.As(err, &idxErr))

	require.NoError(t, c.DeleteCollection(ctx), "deleting a missing collection is not an error")
	require.NoError(t, c.CreateCollection(ctx, port.CollectionSpec{Dimension: 3}))
	require.NoError(t, c.Upsert(ctx, records()))

	info, err := c.GetCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointsCount)
	assert.Equal(t, 3, info.Dimension)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, key := range fake.apiKeys {
		assert.Equal(t, "secret", key)
	}
}

func TestClient_SearchRoundTripsPayload(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.CreateCollection(ctx, port.CollectionSpec{Dimension: 3}))
	require.NoError(t, c.Upsert(ctx, records()))

	hits, err := c.Search(ctx, port.SearchRequest{Vector: []float32{1, 0, 0}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	first := hits[0]
	assert.Equal(t, "attractions_le_morne_0", first.ID)
	assert.Equal(t, domain.TierVectorSearch, first.Tier)
	assert.Equal(t, "Le Morne", first.Payload.Title)
	assert.Equal(t, "Black River", first.Payload.Region)
	require.NotNil(t, first.Payload.ChunkIndex)
	assert.Equal(t, 0, *first.Payload.ChunkIndex)
	assert.Empty(t, hits[1].Payload.Region)
}

func TestClient_ScrollMatchesKeywords(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.CreateCollection(ctx, port.CollectionSpec{Dimension: 3}))
	require.NoError(t, c.Upsert(ctx, records()))

	require.NoError(t, c.EnsureTextIndex(ctx, "content"))
	assert.Equal(t, "content", fake.textIndex)

	hits, err := c.Scroll(ctx, port.ScrollRequest{Field: "content", Keywords: []string{"unesco", "casino"}, Limit: 20})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "attractions_le_morne_1", hits[0].ID)
	assert.Equal(t, domain.TierTextFilter, hits[0].Tier)

	hits, err = c.Scroll(ctx, port.ScrollRequest{Field: "content", Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1", Collection: "attractions"})

	_, err := c.Search(context.Background(), port.SearchRequest{Vector: []float32{1}, Limit: 1})
	var idxErr *domain.IndexUnavailableError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, "search", idxErr.Op)
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("attractions_le_morne_0")
	assert.Equal(t, a, PointID("attractions_le_morne_0"))
	assert.NotEqual(t, a, PointID("attractions_le_morne_1"))
	assert.Len(t, a, 36)
}
