package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/forms"
)

// StripCodeFence performs the only repair we allow on model output: peeling
// a markdown fence and trimming prose outside the outermost JSON object.
// Anything still unparseable after this is rejected, never patched.
func StripCodeFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(s)
}

// NormalizeModelJSON reshapes decoded model output toward the form schema:
// numeric currency values become fixed-point strings, empty strings become
// null, missing schema keys are filled with null, and unknown keys are
// removed. It returns the missing field names (null after fill) and a note
// per key it dropped or rewrote.
func NormalizeModelJSON(raw []byte, schema *forms.Schema, logger *slog.Logger) ([]byte, []string, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var missing, dropped []string

	for k := range maps.Clone(m) {
		if _, ok := schema.Lookup(k); !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	for _, f := range schema.Fields {
		v, present := m[f.Name]
		if !present || v == nil {
			m[f.Name] = nil
			if !present {
				missing = append(missing, f.Name)
			}
			continue
		}
		norm, note, ok := normalizeValue(f, v)
		if !ok {
			m[f.Name] = nil
			missing = append(missing, f.Name)
			if note != "" {
				dropped = append(dropped, f.Name+"("+note+")")
			}
			continue
		}
		m[f.Name] = norm
		if note != "" {
			dropped = append(dropped, f.Name+"("+note+")")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, missing, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.sanitize.rewrote", "form_type", schema.Form, "notes", dropped)
	}
	return out, missing, dropped, nil
}

func normalizeValue(f forms.Field, v any) (any, string, bool) {
	switch f.Kind {
	case forms.KindCurrency:
		return normalizeCurrency(v)
	case forms.KindBoolean:
		switch t := v.(type) {
		case bool:
			return t, "", true
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "x", "checked":
				return true, "coerced", true
			case "false", "no", "":
				return false, "coerced", true
			}
			return nil, "type", false
		default:
			return nil, "type", false
		}
	case forms.KindCoded:
		return normalizeCodedList(v)
	default:
		s, ok := v.(string)
		if !ok {
			return nil, "type", false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, "empty", false
		}
		return s, "", true
	}
}

func normalizeCurrency(v any) (any, string, bool) {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", t), "coerced", true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, "empty", false
		}
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			out := fmt.Sprintf("%.2f", f)
			if out != t {
				return out, "coerced", true
			}
			return out, "", true
		}
		return nil, "malformed", false
	default:
		return nil, "type", false
	}
}

// normalizeCodedList keeps well-formed (code, amount) entries and discards
// the rest, so one garbled box line never voids the whole list.
func normalizeCodedList(v any) (any, string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, "type", false
	}
	out := make([]any, 0, len(arr))
	skipped := 0
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		code, _ := obj["code"].(string)
		code = strings.ToUpper(strings.TrimSpace(code))
		amt, _, ok := normalizeCurrency(obj["amount"])
		if code == "" || !ok {
			skipped++
			continue
		}
		out = append(out, map[string]any{"code": code, "amount": amt})
	}
	if len(out) == 0 && skipped > 0 {
		return nil, "all entries malformed", false
	}
	if skipped > 0 {
		return out, fmt.Sprintf("%d entries dropped", skipped), true
	}
	return out, "", true
}
