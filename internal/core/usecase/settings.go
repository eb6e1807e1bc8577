package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
)

var (
	errEmptyKey = errors.New("key must not be empty")
	errKeyTaken = errors.New("key already defined")
)

// SettingsUseCase serves runtime configuration CRUD and hands out read
// snapshots to the pipeline. A snapshot is taken once per request so a
// concurrent config write cannot change behavior mid-flight.
type SettingsUseCase struct {
	store ports.SettingsStore
	log   *slog.Logger
}

func NewSettingsUseCase(store ports.SettingsStore, log *slog.Logger) *SettingsUseCase {
	return &SettingsUseCase{store: store, log: log}
}

// ConfigSnapshot is a point-in-time view of the settings store. Typed getters
// never fail: a missing or malformed value degrades to the caller's fallback
// and the degradation is logged.
type ConfigSnapshot struct {
	values map[string]domain.Setting
	log    *slog.Logger
}

// Snapshot reads the whole store once. A store outage degrades to an empty
// snapshot so the pipeline keeps serving on hardcoded defaults.
func (uc *SettingsUseCase) Snapshot(ctx context.Context) *ConfigSnapshot {
	snap := &ConfigSnapshot{values: map[string]domain.Setting{}, log: uc.log}

	settings, err := uc.store.GetAll(ctx)
	if err != nil {
		uc.log.Warn("settings store unavailable, serving defaults", "error", err)
		return snap
	}
	for _, s := range settings {
		snap.values[s.Key] = s
	}
	return snap
}

func (s *ConfigSnapshot) Bool(key string, fallback bool) bool {
	v, ok := s.decode(key)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		s.logDegrade(key, fallback)
		return fallback
	}
	return b
}

func (s *ConfigSnapshot) Int(key string, fallback int) int {
	v, ok := s.decode(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	s.logDegrade(key, fallback)
	return fallback
}

func (s *ConfigSnapshot) Float(key string, fallback float64) float64 {
	v, ok := s.decode(key)
	if !ok {
		return fallback
	}
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	s.logDegrade(key, fallback)
	return fallback
}

func (s *ConfigSnapshot) Str(key, fallback string) string {
	v, ok := s.decode(key)
	if !ok {
		return fallback
	}
	str, ok := v.(string)
	if !ok || str == "" {
		s.logDegrade(key, fallback)
		return fallback
	}
	return str
}

// decode reports ok=false for absent keys (silent fallback) and for malformed
// values (logged fallback).
func (s *ConfigSnapshot) decode(key string) (any, bool) {
	setting, ok := s.values[key]
	if !ok {
		return nil, false
	}
	v, err := setting.Decode()
	if err != nil {
		s.log.Warn("malformed setting, degrading to default", "key", key, "error", err)
		return nil, false
	}
	return v, true
}

func (s *ConfigSnapshot) logDegrade(key string, fallback any) {
	s.log.Warn("setting has unexpected type, degrading to default", "key", key, "fallback", fallback)
}

func (uc *SettingsUseCase) Get(ctx context.Context, key string) (*domain.Setting, error) {
	return uc.store.Get(ctx, key)
}

func (uc *SettingsUseCase) List(ctx context.Context) ([]domain.Setting, error) {
	return uc.store.GetAll(ctx)
}

func (uc *SettingsUseCase) Groups(ctx context.Context) ([]string, error) {
	settings, err := uc.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	groups := make([]string, 0, 4)
	for _, s := range settings {
		if s.Group == "" {
			continue
		}
		if _, ok := seen[s.Group]; ok {
			continue
		}
		seen[s.Group] = struct{}{}
		groups = append(groups, s.Group)
	}
	sort.Strings(groups)
	return groups, nil
}

// GetGroup returns the group's settings decoded to their declared types.
// A value that fails to decode is returned as its raw string.
func (uc *SettingsUseCase) GetGroup(ctx context.Context, group string) (map[string]any, error) {
	settings, err := uc.store.GetGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(settings))
	for _, s := range settings {
		v, err := s.Decode()
		if err != nil {
			uc.log.Warn("malformed setting in group read", "key", s.Key, "error", err)
			out[s.Key] = s.Value
			continue
		}
		out[s.Key] = v
	}
	return out, nil
}

func (uc *SettingsUseCase) Create(ctx context.Context, setting domain.Setting) (*domain.Setting, error) {
	if setting.Key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create setting", errEmptyKey)
	}
	if _, err := uc.store.Get(ctx, setting.Key); err == nil {
		return nil, domain.WrapError(domain.ErrSettingAlreadyExists, "create setting", errKeyTaken)
	} else if !domain.IsKind(err, domain.ErrSettingNotFound) {
		return nil, err
	}
	if setting.ValueType == "" {
		setting.ValueType = domain.TypeString
	}
	if err := uc.store.Set(ctx, setting); err != nil {
		return nil, err
	}
	return uc.store.Get(ctx, setting.Key)
}

func (uc *SettingsUseCase) Update(ctx context.Context, setting domain.Setting) (*domain.Setting, error) {
	existing, err := uc.store.Get(ctx, setting.Key)
	if err != nil {
		return nil, err
	}
	if setting.ValueType == "" {
		setting.ValueType = existing.ValueType
	}
	if setting.Group == "" {
		setting.Group = existing.Group
	}
	if setting.Description == "" {
		setting.Description = existing.Description
	}
	if err := uc.store.Set(ctx, setting); err != nil {
		return nil, err
	}
	return uc.store.Get(ctx, setting.Key)
}

func (uc *SettingsUseCase) Delete(ctx context.Context, key string) error {
	return uc.store.Delete(ctx, key)
}

// InitializeDefaults seeds the store with the stock configuration. Existing
// keys are left untouched so re-initialization is safe.
func (uc *SettingsUseCase) InitializeDefaults(ctx context.Context) error {
	for _, def := range defaultSettings() {
		if _, err := uc.store.Get(ctx, def.Key); err == nil {
			continue
		} else if !domain.IsKind(err, domain.ErrSettingNotFound) {
			return err
		}
		if err := uc.store.Set(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func defaultSettings() []domain.Setting {
	return []domain.Setting{
		{Key: domain.KeyEnableEmbedding, Value: "false", ValueType: domain.TypeBool, Group: domain.GroupFeatures, Description: "Use dense vector retrieval instead of keyword search"},
		{Key: domain.KeyEnableReranking, Value: "true", ValueType: domain.TypeBool, Group: domain.GroupFeatures, Description: "Apply a second-stage reranker to retrieved chunks"},
		{Key: domain.KeyChunkSize, Value: "1000", ValueType: domain.TypeInt, Group: domain.GroupRAG, Description: "Maximum chunk size in characters"},
		{Key: domain.KeyChunkOverlap, Value: "200", ValueType: domain.TypeInt, Group: domain.GroupRAG, Description: "Overlap between consecutive chunks in characters"},
		{Key: domain.KeyMaxChunks, Value: "5", ValueType: domain.TypeInt, Group: domain.GroupRAG, Description: "Default number of chunks to retrieve"},
		{Key: domain.KeyMaxContextChars, Value: "8000", ValueType: domain.TypeInt, Group: domain.GroupRAG, Description: "Character budget for assembled prompt context"},
		{Key: domain.KeyTemperature, Value: "0.2", ValueType: domain.TypeFloat, Group: domain.GroupRAG, Description: "Default sampling temperature"},
		{Key: domain.KeyBM25K1, Value: "1.5", ValueType: domain.TypeFloat, Group: domain.GroupRAG, Description: "BM25 term frequency saturation"},
		{Key: domain.KeyBM25B, Value: "0.75", ValueType: domain.TypeFloat, Group: domain.GroupRAG, Description: "BM25 length normalization"},
		{Key: domain.KeySystemPrompt, Value: defaultSystemPrompt, ValueType: domain.TypeString, Group: domain.GroupRAG, Description: "System prompt for answer generation"},
		{Key: domain.KeyDefaultLLMProvider, Value: "anthropic", ValueType: domain.TypeString, Group: domain.GroupProviders, Description: "Completion backend: anthropic, openai or gemini"},
		{Key: domain.KeyDefaultEmbeddingProvider, Value: "voyage", ValueType: domain.TypeString, Group: domain.GroupProviders, Description: "Embedding backend: voyage or openai"},
		{Key: domain.KeyDefaultRerankingMethod, Value: "bm25", ValueType: domain.TypeString, Group: domain.GroupProviders, Description: "Rerank method: bm25, cohere or none"},
	}
}
