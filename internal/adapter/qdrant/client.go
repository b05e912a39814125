package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

const upsertBatchSize = 256

// Client is a minimal REST client bound to one Qdrant collection.
type Client struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

var (
	_ port.VectorIndex  = (*Client)(nil)
	_ port.TextSearcher = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return c.collection
}

// PointID maps a record id to the UUID Qdrant stores it under. Qdrant only
// accepts unsigned integers and UUIDs as point ids.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

type payload struct {
	domain.Metadata
	RecordID string `json:"record_id"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type scoredPoint struct {
	ID      any     `json:"id"`
	Score   float64 `json:"score"`
	Payload payload `json:"payload"`
}

func (p scoredPoint) hit(tier domain.Tier) domain.SearchHit {
	id := p.Payload.RecordID
	if id == "" {
		id = fmt.Sprint(p.ID)
	}
	return domain.SearchHit{ID: id, Score: p.Score, Payload: p.Payload.Metadata, Tier: tier}
}

func (c *Client) CreateCollection(ctx context.Context, spec port.CollectionSpec) error {
	if spec.Dimension <= 0 {
		return errors.New("invalid dimension")
	}
	distance := spec.Distance
	if distance == "" {
		distance = port.DistanceCosine
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.Dimension,
			"distance": distance,
		},
	}
	return c.do(ctx, "create_collection", http.MethodPut, c.collectionURL(""), body, nil)
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (c *Client) DeleteCollection(ctx context.Context) error {
	err := c.do(ctx, "delete_collection", http.MethodDelete, c.collectionURL(""), nil, nil)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return nil
	}
	return err
}

func (c *Client) GetCollection(ctx context.Context) (*port.CollectionInfo, error) {
	var resp struct {
		Result struct {
			Status      string `json:"status"`
			PointsCount *int   `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := c.do(ctx, "get_collection", http.MethodGet, c.collectionURL(""), nil, &resp); err != nil {
		return nil, err
	}

	info := &port.CollectionInfo{
		Name:      c.collection,
		Status:    resp.Result.Status,
		Dimension: resp.Result.Config.Params.Vectors.Size,
	}
	if resp.Result.PointsCount != nil {
		info.PointsCount = *resp.Result.PointsCount
	}
	return info, nil
}

func (c *Client) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))

		points := make([]point, 0, end-start)
		for _, r := range records[start:end] {
			points = append(points, point{
				ID:      PointID(r.ID),
				Vector:  r.Vector,
				Payload: payload{Metadata: r.Payload, RecordID: r.ID},
			})
		}

		body := map[string]any{"points": points}
		if err := c.do(ctx, "upsert", http.MethodPut, c.collectionURL("/points?wait=true"), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Search(ctx context.Context, req port.SearchRequest) ([]domain.SearchHit, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{
		"vector":       req.Vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := c.do(ctx, "search", http.MethodPost, c.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, p := range resp.Result {
		hits = append(hits, p.hit(domain.TierVectorSearch))
	}
	return hits, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	body := map[string]any{"exact": true}
	if err := c.do(ctx, "count", http.MethodPost, c.collectionURL("/points/count"), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// EnsureTextIndex creates a full-text payload index on field. Qdrant accepts
// the call again for an existing index with the same schema.
func (c *Client) EnsureTextIndex(ctx context.Context, field string) error {
	body := map[string]any{
		"field_name": field,
		"field_schema": map[string]any{
			"type":          "text",
			"tokenizer":     "word",
			"lowercase":     true,
			"min_token_len": 2,
			"max_token_len": 40,
		},
	}
	return c.do(ctx, "create_text_index", http.MethodPut, c.collectionURL("/index?wait=true"), body, nil)
}

// Scroll returns points whose field matches any of the keywords. Scroll has
// no ranking, so every hit carries a zero score.
func (c *Client) Scroll(ctx context.Context, req port.ScrollRequest) ([]domain.SearchHit, error) {
	if len(req.Keywords) == 0 {
		return nil, nil
	}

	should := make([]map[string]any, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		should = append(should, map[string]any{
			"key":   req.Field,
			"match": map[string]any{"text": kw},
		})
	}
	body := map[string]any{
		"filter":       map[string]any{"should": should},
		"limit":        req.Limit,
		"with_payload": true,
		"with_vector":  false,
	}

	var resp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	if err := c.do(ctx, "scroll", http.MethodPost, c.collectionURL("/points/scroll"), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		hits = append(hits, p.hit(domain.TierTextFilter))
	}
	return hits, nil
}

func (c *Client) collectionURL(suffix string) string {
	return c.url + "/collections/" + url.PathEscape(c.collection) + suffix
}

// do sends one JSON request. Transport failures and non-2xx statuses come back
// as *domain.IndexUnavailableError; 404 wraps domain.ErrCollectionNotFound.
func (c *Client) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.IndexUnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &domain.IndexUnavailableError{Op: op, Err: fmt.Errorf("%s: %w", c.collection, domain.ErrCollectionNotFound)}
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.IndexUnavailableError{
			Op:  op,
			Err: fmt.Errorf("qdrant %s %s failed: %s: %s", method, target, resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
}
