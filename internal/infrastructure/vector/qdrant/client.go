package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Client talks to qdrant over its HTTP API. Every chunk is stored with a
// sparse lexical vector; a dense vector is added when embedding is enabled,
// so keyword search keeps working for documents indexed either way.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredDenseSize  int
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, collection string) *Client {
	return NewWithOptions(baseURL, collection, Options{})
}

func NewWithOptions(baseURL, collection string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  map[string]any `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) UpsertChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if vectors != nil && len(vectors) != len(chunks) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	denseSize := 0
	if len(vectors) > 0 {
		denseSize = len(vectors[0])
	}
	if err := c.ensureCollection(ctx, denseSize); err != nil {
		return err
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		vector := map[string]any{
			sparseVectorName: encodeSparseDocument(chunk.Text),
		}
		if vectors != nil {
			vector[denseVectorName] = vectors[i]
		}
		points = append(points, point{
			ID:     chunk.ID,
			Vector: vector,
			Payload: map[string]any{
				"document_id": doc.ID,
				"chunk_id":    chunk.ID,
				"chunk_index": chunk.Index,
				"ordinal":     chunk.Ordinal,
				"text":        chunk.Text,
				"metadata":    doc.Metadata,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.call(ctx, "qdrant.upsert", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
	})
}

func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	return c.call(ctx, "qdrant.delete", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, body, nil, "delete")
	})
}

func (c *Client) SimilaritySearch(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	return c.query(ctx, "qdrant.search_dense", map[string]any{
		"query":        queryVector,
		"using":        denseVectorName,
		"limit":        limit,
		"with_payload": true,
	}, filter)
}

func (c *Client) KeywordSearch(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	return c.query(ctx, "qdrant.search_sparse", map[string]any{
		"query":        encodeSparseQuery(queryText),
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}, filter)
}

func (c *Client) query(ctx context.Context, operation string, body map[string]any, filter domain.SearchFilter) ([]domain.Candidate, error) {
	if f := filterClauses(filter); f != nil {
		body["filter"] = f
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				ID      string         `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	err := c.call(ctx, operation, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, body, &queryResp, "query")
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		candidate := domain.Candidate{
			ChunkID:    stringPayload(p.Payload, "chunk_id"),
			DocumentID: stringPayload(p.Payload, "document_id"),
			ChunkIndex: intPayload(p.Payload, "chunk_index"),
			Ordinal:    int64(intPayload(p.Payload, "ordinal")),
			Text:       stringPayload(p.Payload, "text"),
			Score:      p.Score,
		}
		if candidate.ChunkID == "" {
			candidate.ChunkID = p.ID
		}
		if meta, ok := p.Payload["metadata"].(map[string]any); ok {
			candidate.Metadata = meta
		}
		out = append(out, candidate)
	}
	return out, nil
}

func filterClauses(filter domain.SearchFilter) map[string]any {
	if len(filter.Where) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter.Where))
	for key, value := range filter.Where {
		must = append(must, map[string]any{
			"key":   "metadata." + key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

// ensureCollection creates the collection on first use. The sparse vector is
// always declared; the dense vector is declared once its size is known.
func (c *Client) ensureCollection(ctx context.Context, denseSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && (denseSize == 0 || c.ensuredDenseSize == denseSize) {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	vectors := map[string]any{}
	if denseSize > 0 {
		vectors[denseVectorName] = map[string]any{
			"size":     denseSize,
			"distance": "Cosine",
		}
	}
	body := map[string]any{
		"vectors": vectors,
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{"modifier": "idf"},
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.call(ctx, "qdrant.ensure_collection", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, path, body, nil, "ensure collection")
	})
	if err != nil {
		var statusErr *resilience.HTTPStatusError
		// 409 means another writer created it first. That writer may have
		// declared the sparse vector only, so confirm the collection can
		// actually hold our dense vectors before trusting it.
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			if denseSize > 0 {
				if err := c.verifyDenseVector(ctx); err != nil {
					return err
				}
			}
			c.markCollectionEnsured(denseSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(denseSize)
	return nil
}

// verifyDenseVector fetches the collection config and checks the named dense
// vector was declared. A sparse-only collection accepts keyword chunks but
// rejects dense upserts with an opaque qdrant error, so fail early instead.
func (c *Client) verifyDenseVector(ctx context.Context) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors map[string]json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.call(ctx, "qdrant.collection_info", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &info, "collection info")
	})
	if err != nil {
		return err
	}
	if _, ok := info.Result.Config.Params.Vectors[denseVectorName]; !ok {
		return fmt.Errorf("qdrant collection %q lacks the %q dense vector; recreate it with dense vectors before indexing with embeddings enabled", c.collection, denseVectorName)
	}
	return nil
}

func (c *Client) markCollectionEnsured(denseSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	if denseSize > 0 {
		c.ensuredDenseSize = denseSize
	}
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor != nil {
		return c.executor.Execute(ctx, operation, fn, resilience.ClassifyHTTPError)
	}
	return fn(ctx)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
