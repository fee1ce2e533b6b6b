package deal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// Handler exposes the property sync endpoint.
type Handler struct {
	Gateway *Gateway
}

// UpdateProperties handles PATCH /deals/{dealID}/properties. The body is a
// flat object of property values; array values encode as a single
// semicolon-delimited string, numbers as their decimal form. On success the
// refreshed configuration is returned so callers can recompute immediately.
func (h *Handler) UpdateProperties(w http.ResponseWriter, r *http.Request) {
	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		common.JSONError(w, http.StatusBadRequest, "invalid_deal_id", "deal id is required", nil)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	if len(body) == 0 {
		common.JSONError(w, http.StatusBadRequest, "empty_update", "no properties to update", nil)
		return
	}

	properties := make(map[string]string, len(body))
	for name, raw := range body {
		value, err := encodePropertyValue(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "invalid_property_value", "unsupported value for property "+name, err.Error())
			return
		}
		properties[name] = value
	}

	cfg, err := h.Gateway.WriteProperties(r.Context(), dealID, properties)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "property_write_failed", "failed to update deal properties", err.Error())
		return
	}

	common.JSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func encodePropertyValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", errUnsupportedValue
			}
			parts = append(parts, s)
		}
		return JoinMultiValue(parts), nil
	default:
		return "", errUnsupportedValue
	}
}

var errUnsupportedValue = jsonValueError("property values must be strings, numbers, booleans or string arrays")

type jsonValueError string

func (e jsonValueError) Error() string { return string(e) }
