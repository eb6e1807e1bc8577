package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

func TestUpsertChunksSendsNamedVectors(t *testing.T) {
	var upsertBody map[string]any
	var collectionBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks":
			_ = json.NewDecoder(r.Body).Decode(&collectionBody)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks/points":
			_ = json.NewDecoder(r.Body).Decode(&upsertBody)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"result":{}}`)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	doc := &domain.Document{ID: "d1", Metadata: map[string]any{"source": "wiki"}}
	chunks := []domain.Chunk{{ID: "b3b9b2f0-0000-0000-0000-000000000001", DocumentID: "d1", Index: 0, Text: "hello world", Ordinal: 7}}
	vectors := [][]float32{{0.1, 0.2, 0.3}}

	if err := client.UpsertChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("UpsertChunks() error = %v", err)
	}

	vectorsCfg, ok := collectionBody["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("collection create missing vectors config: %v", collectionBody)
	}
	if _, ok := vectorsCfg["dense"]; !ok {
		t.Fatalf("dense vector config missing: %v", vectorsCfg)
	}
	if _, ok := collectionBody["sparse_vectors"].(map[string]any)["sparse"]; !ok {
		t.Fatalf("sparse vector config missing: %v", collectionBody)
	}

	points := upsertBody["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected one point, got %d", len(points))
	}
	p := points[0].(map[string]any)
	vector := p["vector"].(map[string]any)
	if _, ok := vector["dense"]; !ok {
		t.Fatalf("dense vector missing from point: %v", vector)
	}
	if _, ok := vector["sparse"]; !ok {
		t.Fatalf("sparse vector missing from point: %v", vector)
	}
	payload := p["payload"].(map[string]any)
	if payload["document_id"] != "d1" || payload["text"] != "hello world" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["ordinal"].(float64) != 7 {
		t.Fatalf("ordinal missing from payload: %v", payload)
	}
}

func TestUpsertChunksWithoutDenseVectors(t *testing.T) {
	var upsertBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/chunks/points" {
			_ = json.NewDecoder(r.Body).Decode(&upsertBody)
		}
		_, _ = io.WriteString(w, `{"result":{}}`)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	doc := &domain.Document{ID: "d1"}
	chunks := []domain.Chunk{{ID: "c1", Text: "keyword only"}}

	if err := client.UpsertChunks(context.Background(), doc, chunks, nil); err != nil {
		t.Fatalf("UpsertChunks() error = %v", err)
	}
	p := upsertBody["points"].([]any)[0].(map[string]any)
	vector := p["vector"].(map[string]any)
	if _, ok := vector["dense"]; ok {
		t.Fatalf("dense vector present without embeddings: %v", vector)
	}
	if _, ok := vector["sparse"]; !ok {
		t.Fatalf("sparse vector missing: %v", vector)
	}
}

func TestUpsertRejectsSparseOnlyCollectionOnConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks":
			http.Error(w, `{"status":{"error":"already exists"}}`, http.StatusConflict)
		case r.Method == http.MethodGet && r.URL.Path == "/collections/chunks":
			_, _ = io.WriteString(w, `{"result":{"config":{"params":{
				"vectors":{},
				"sparse_vectors":{"sparse":{"modifier":"idf"}}
			}}}}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	doc := &domain.Document{ID: "d1"}
	chunks := []domain.Chunk{{ID: "c1", Text: "hello"}}
	vectors := [][]float32{{0.1, 0.2}}

	err := client.UpsertChunks(context.Background(), doc, chunks, vectors)
	if err == nil {
		t.Fatal("expected error for a collection created without dense vectors")
	}
	if !strings.Contains(err.Error(), "dense") {
		t.Fatalf("error should name the missing dense vector: %v", err)
	}
}

func TestUpsertAcceptsExistingCollectionWithDenseVectors(t *testing.T) {
	upserted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks":
			http.Error(w, `{"status":{"error":"already exists"}}`, http.StatusConflict)
		case r.Method == http.MethodGet && r.URL.Path == "/collections/chunks":
			_, _ = io.WriteString(w, `{"result":{"config":{"params":{
				"vectors":{"dense":{"size":2,"distance":"Cosine"}},
				"sparse_vectors":{"sparse":{"modifier":"idf"}}
			}}}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks/points":
			upserted = true
			_, _ = io.WriteString(w, `{"result":{}}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	doc := &domain.Document{ID: "d1"}
	chunks := []domain.Chunk{{ID: "c1", Text: "hello"}}
	vectors := [][]float32{{0.1, 0.2}}

	if err := client.UpsertChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("UpsertChunks() error = %v", err)
	}
	if !upserted {
		t.Fatal("points were never upserted")
	}
}

func TestSimilaritySearchDecodesCandidates(t *testing.T) {
	var queryBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/chunks/points/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&queryBody)
		_, _ = io.WriteString(w, `{"result":{"points":[
			{"id":"p1","score":0.92,"payload":{"chunk_id":"c1","document_id":"d1","chunk_index":2,"ordinal":11,"text":"found","metadata":{"source":"wiki"}}}
		]}}`)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	results, err := client.SimilaritySearch(context.Background(), []float32{0.1}, 5, domain.SearchFilter{
		Where: map[string]any{"source": "wiki"},
	})
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if queryBody["using"] != "dense" {
		t.Fatalf("expected dense vector query, got %v", queryBody["using"])
	}
	filter := queryBody["filter"].(map[string]any)
	must := filter["must"].([]any)[0].(map[string]any)
	if must["key"] != "metadata.source" {
		t.Fatalf("metadata filter not namespaced: %v", must)
	}

	if len(results) != 1 {
		t.Fatalf("expected one candidate, got %d", len(results))
	}
	got := results[0]
	if got.ChunkID != "c1" || got.DocumentID != "d1" || got.ChunkIndex != 2 || got.Ordinal != 11 || got.Score != 0.92 {
		t.Fatalf("candidate decoded wrong: %+v", got)
	}
	if got.Metadata["source"] != "wiki" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestKeywordSearchUsesSparseVector(t *testing.T) {
	var queryBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&queryBody)
		_, _ = io.WriteString(w, `{"result":{"points":[]}}`)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if _, err := client.KeywordSearch(context.Background(), "blue sky", 3, domain.SearchFilter{}); err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}
	if queryBody["using"] != "sparse" {
		t.Fatalf("expected sparse vector query, got %v", queryBody["using"])
	}
	query := queryBody["query"].(map[string]any)
	if len(query["indices"].([]any)) != 2 || len(query["values"].([]any)) != 2 {
		t.Fatalf("sparse query not encoded: %v", query)
	}
}

func TestDeleteByDocumentFilters(t *testing.T) {
	var deleteBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/chunks/points/delete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&deleteBody)
		_, _ = io.WriteString(w, `{"result":{}}`)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if err := client.DeleteByDocument(context.Background(), "d1"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	must := deleteBody["filter"].(map[string]any)["must"].([]any)[0].(map[string]any)
	if must["key"] != "document_id" || must["match"].(map[string]any)["value"] != "d1" {
		t.Fatalf("unexpected delete filter: %v", deleteBody)
	}
}

func TestSearchErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	if _, err := client.KeywordSearch(context.Background(), "q", 3, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSparseEncoderRepeatedTermsSaturate(t *testing.T) {
	once := encodeSparseDocument("sky")
	many := encodeSparseDocument("sky sky sky sky")
	if len(once.Indices) != 1 || len(many.Indices) != 1 {
		t.Fatalf("unexpected index counts: %d %d", len(once.Indices), len(many.Indices))
	}
	if many.Values[0] <= once.Values[0] {
		t.Fatalf("repeated term should weigh more: %v vs %v", many.Values[0], once.Values[0])
	}
	if many.Values[0] >= once.Values[0]*4 {
		t.Fatalf("term weight should saturate, got %v vs %v", many.Values[0], once.Values[0])
	}
}

func TestSparseEncoderEmptyText(t *testing.T) {
	sv := encodeSparseDocument("... !!! ???")
	if len(sv.Indices) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", sv)
	}
}
