package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type settingsStoreFake struct {
	settings map[string]domain.Setting
	err      error
	setCalls int
}

func newSettingsStoreFake(settings ...domain.Setting) *settingsStoreFake {
	f := &settingsStoreFake{settings: map[string]domain.Setting{}}
	for _, s := range settings {
		f.settings[s.Key] = s
	}
	return f
}

func (f *settingsStoreFake) Get(_ context.Context, key string) (*domain.Setting, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.settings[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &s, nil
}

func (f *settingsStoreFake) GetAll(context.Context) ([]domain.Setting, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Setting, 0, len(f.settings))
	for _, s := range f.settings {
		out = append(out, s)
	}
	return out, nil
}

func (f *settingsStoreFake) GetGroup(_ context.Context, group string) ([]domain.Setting, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Setting, 0, len(f.settings))
	for _, s := range f.settings {
		if s.Group == group {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *settingsStoreFake) Set(_ context.Context, setting domain.Setting) error {
	if f.err != nil {
		return f.err
	}
	f.setCalls++
	f.settings[setting.Key] = setting
	return nil
}

func (f *settingsStoreFake) Delete(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.settings[key]; !ok {
		return domain.ErrSettingNotFound
	}
	delete(f.settings, key)
	return nil
}

func settingsWith(pairs map[string]domain.Setting) *SettingsUseCase {
	settings := make([]domain.Setting, 0, len(pairs))
	for key, s := range pairs {
		s.Key = key
		settings = append(settings, s)
	}
	return NewSettingsUseCase(newSettingsStoreFake(settings...), testLogger())
}

func boolSetting(value string) domain.Setting {
	return domain.Setting{Value: value, ValueType: domain.TypeBool, Group: domain.GroupFeatures}
}

func strSetting(value string) domain.Setting {
	return domain.Setting{Value: value, ValueType: domain.TypeString, Group: domain.GroupProviders}
}

func intSetting(value string) domain.Setting {
	return domain.Setting{Value: value, ValueType: domain.TypeInt, Group: domain.GroupRAG}
}

type vectorIndexFake struct {
	simResults     []domain.Candidate
	keywordResults []domain.Candidate
	simErr         error
	keywordErr     error
	deleteErr      error
	upsertErr      error

	simCalls     int
	keywordCalls int
	simLimit     int
	keywordQuery string

	upsertedDoc     *domain.Document
	upsertedChunks  []domain.Chunk
	upsertedVectors [][]float32
	deletedDocument string
}

func (f *vectorIndexFake) UpsertChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertedDoc = doc
	f.upsertedChunks = chunks
	f.upsertedVectors = vectors
	return nil
}

func (f *vectorIndexFake) DeleteByDocument(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedDocument = documentID
	return nil
}

func (f *vectorIndexFake) SimilaritySearch(_ context.Context, _ []float32, limit int, _ domain.SearchFilter) ([]domain.Candidate, error) {
	f.simCalls++
	f.simLimit = limit
	if f.simErr != nil {
		return nil, f.simErr
	}
	return append([]domain.Candidate(nil), f.simResults...), nil
}

func (f *vectorIndexFake) KeywordSearch(_ context.Context, queryText string, _ int, _ domain.SearchFilter) ([]domain.Candidate, error) {
	f.keywordCalls++
	f.keywordQuery = queryText
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return append([]domain.Candidate(nil), f.keywordResults...), nil
}

type embedderFake struct {
	vectors    [][]float32
	err        error
	embedCalls int
	queryCalls int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type rerankProviderFake struct {
	scores []float64
	err    error
	query  string
}

func (f *rerankProviderFake) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	return make([]float64, len(texts)), nil
}

type completionFake struct {
	text        string
	err         error
	prompt      string
	system      string
	temperature float64
}

func (f *completionFake) Complete(_ context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	f.prompt = prompt
	f.system = systemPrompt
	f.temperature = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type documentRepoFake struct {
	docs   map[string]*domain.Document
	chunks map[string][]domain.Chunk

	createErr error
	statusErr error

	statuses []domain.DocumentStatus
	lastErr  string
	deleted  []string
}

func newDocumentRepoFake() *documentRepoFake {
	return &documentRepoFake{
		docs:   map[string]*domain.Document{},
		chunks: map[string][]domain.Chunk{},
	}
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	f.chunks[doc.ID] = chunks
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *documentRepoFake) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	return f.chunks[documentID], nil
}

func (f *documentRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	return nil
}

func (f *documentRepoFake) Delete(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(f.docs, id)
	delete(f.chunks, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentQueued(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentQueued(context.Context, func(context.Context, string) error) error {
	return nil
}

type chunkerFake struct {
	spans []domain.ChunkSpan
	err   error

	maxSize int
	overlap int
	calls   int
}

func (f *chunkerFake) Split(text string, maxSize, overlap int) ([]domain.ChunkSpan, error) {
	f.calls++
	f.maxSize = maxSize
	f.overlap = overlap
	if f.err != nil && f.calls == 1 {
		return nil, f.err
	}
	if f.spans != nil {
		return f.spans, nil
	}
	return []domain.ChunkSpan{{Text: text, Offset: 0}}, nil
}

var _ ports.SettingsStore = (*settingsStoreFake)(nil)
var _ ports.VectorIndex = (*vectorIndexFake)(nil)
var _ ports.EmbeddingProvider = (*embedderFake)(nil)
var _ ports.RerankProvider = (*rerankProviderFake)(nil)
var _ ports.CompletionProvider = (*completionFake)(nil)
var _ ports.DocumentRepository = (*documentRepoFake)(nil)
var _ ports.MessageQueue = (*queueFake)(nil)
var _ ports.Chunker = (*chunkerFake)(nil)
