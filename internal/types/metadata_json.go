package types

import "encoding/json"

// knownMetadataKeys lists the JSON keys pulled onto named Metadata fields,
// so MarshalJSON/UnmarshalJSON can merge them with Extra without duplication.
var knownMetadataKeys = map[string]bool{
	"type": true, "priority": true, "alias": true, "decision": true,
	"pattern": true, "pitfall": true, "learning": true,
	"learning_quality": true, "verification_method": true,
	"done_criteria": true, "gh_issue": true, "commits": true,
	"imported_from": true, "context_learnings": true, "ship_pending": true,
}

// UnmarshalJSON decodes known keys onto typed fields and stashes the rest
// in Extra, so round trips never drop metadata the core doesn't recognize.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type alias Metadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Metadata(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownMetadataKeys[k] {
			m.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON emits known fields plus Extra as one flat JSON object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	knownBytes, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(knownBytes, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]json.RawMessage)
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return json.Marshal(out)
}
