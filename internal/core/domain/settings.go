package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ValueType string

const (
	TypeString ValueType = "str"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
	TypeJSON   ValueType = "json"
)

// Setting is one runtime-mutable configuration entry. Values are stored as
// strings and decoded according to ValueType on read.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	ValueType   ValueType `json:"value_type"`
	Description string    `json:"description,omitempty"`
	Group       string    `json:"group_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Well-known setting keys and groups.
const (
	GroupFeatures  = "features"
	GroupRAG       = "rag"
	GroupProviders = "providers"

	KeyEnableEmbedding          = "ENABLE_EMBEDDING"
	KeyEnableReranking          = "ENABLE_RERANKING"
	KeyChunkSize                = "CHUNK_SIZE"
	KeyChunkOverlap             = "CHUNK_OVERLAP"
	KeyMaxChunks                = "MAX_CHUNKS"
	KeyMaxContextChars          = "MAX_CONTEXT_CHARS"
	KeyTemperature              = "TEMPERATURE"
	KeyBM25K1                   = "BM25_K1"
	KeyBM25B                    = "BM25_B"
	KeySystemPrompt             = "SYSTEM_PROMPT"
	KeyDefaultLLMProvider       = "DEFAULT_LLM_PROVIDER"
	KeyDefaultEmbeddingProvider = "DEFAULT_EMBEDDING_PROVIDER"
	KeyDefaultRerankingMethod   = "DEFAULT_RERANKING_METHOD"
)

// Decode converts the stored string to the declared type. A value that does
// not parse, or an unrecognized type tag, yields ErrInvalidConfigValue; the
// reader is expected to degrade to its own default rather than fail the
// request.
func (s Setting) Decode() (any, error) {
	switch s.ValueType {
	case TypeString:
		return s.Value, nil
	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(s.Value))
		if err != nil {
			return nil, WrapError(ErrInvalidConfigValue, "decode int setting "+s.Key, err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
		if err != nil {
			return nil, WrapError(ErrInvalidConfigValue, "decode float setting "+s.Key, err)
		}
		return f, nil
	case TypeBool:
		b, err := parseBoolSetting(s.Value)
		if err != nil {
			return nil, WrapError(ErrInvalidConfigValue, "decode bool setting "+s.Key, err)
		}
		return b, nil
	case TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, WrapError(ErrInvalidConfigValue, "decode json setting "+s.Key, err)
		}
		return v, nil
	default:
		return nil, WrapError(ErrInvalidConfigValue, "decode setting "+s.Key, fmt.Errorf("unknown value type %q", s.ValueType))
	}
}

func parseBoolSetting(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", raw)
	}
}

// EncodeValue renders a dynamically typed value for storage under the given
// type tag. Used by the write path; it is intentionally permissive about
// mismatches (the read path degrades instead).
func EncodeValue(value any, valueType ValueType) (string, error) {
	if valueType == TypeJSON {
		if s, ok := value.(string); ok {
			return s, nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return "", WrapError(ErrInvalidInput, "encode json setting value", err)
		}
		return string(raw), nil
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// InferValueType picks a type tag for values submitted without one.
func InferValueType(value any) ValueType {
	switch value.(type) {
	case bool:
		return TypeBool
	case int, int64:
		return TypeInt
	case float64, json.Number:
		return TypeFloat
	case map[string]any, []any:
		return TypeJSON
	default:
		return TypeString
	}
}
