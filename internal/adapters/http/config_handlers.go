package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
)

type settingRequest struct {
	Key         string           `json:"key"`
	Value       any              `json:"value"`
	ValueType   domain.ValueType `json:"value_type"`
	Description string           `json:"description"`
	Group       string           `json:"group_name"`
}

// toSetting renders the dynamically typed value for storage. A missing
// value_type is inferred from the JSON value so clients can submit raw
// booleans and numbers.
func (req settingRequest) toSetting() (domain.Setting, error) {
	valueType := req.ValueType
	if valueType == "" {
		valueType = domain.InferValueType(req.Value)
	}
	value, err := domain.EncodeValue(req.Value, valueType)
	if err != nil {
		return domain.Setting{}, err
	}
	return domain.Setting{
		Key:         req.Key,
		Value:       value,
		ValueType:   valueType,
		Description: req.Description,
		Group:       req.Group,
	}, nil
}

func (rt *Router) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := rt.settings.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (rt *Router) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := rt.settings.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (rt *Router) createSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	setting, err := req.toSetting()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	created, err := rt.settings.Create(r.Context(), setting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) updateSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	req.Key = r.PathValue("key")
	setting, err := req.toSetting()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	updated, err := rt.settings.Update(r.Context(), setting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (rt *Router) deleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := rt.settings.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := rt.settings.Groups(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (rt *Router) getGroup(w http.ResponseWriter, r *http.Request) {
	values, err := rt.settings.GetGroup(r.Context(), r.PathValue("group"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (rt *Router) initializeDefaults(w http.ResponseWriter, r *http.Request) {
	if err := rt.settings.InitializeDefaults(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "initialized"})
}
