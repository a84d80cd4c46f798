package forms

import (
	"encoding/json"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

// DecodeFields lifts schema-shaped JSON into the typed field map: currency
// becomes entity.Amount, coded lists become CodedEntry slices, null stays
// nil. Both the extractor and the relational read path decode through here
// so a record always round-trips to the same types.
func DecodeFields(s *Schema, data []byte) (entity.FieldMap, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	out := make(entity.FieldMap, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := m[f.Name]
		if !ok || string(raw) == "null" {
			out[f.Name] = nil
			continue
		}
		switch f.Kind {
		case KindCurrency:
			var amt entity.Amount
			if err := json.Unmarshal(raw, &amt); err != nil {
				return nil, err
			}
			out[f.Name] = amt
		case KindCoded:
			var entries []entity.CodedEntry
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, err
			}
			out[f.Name] = entries
		case KindBoolean:
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, err
			}
			out[f.Name] = b
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			out[f.Name] = s
		}
	}
	return out, nil
}
