package credstore

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// currentSchema describes the multi-agent credential document.
const currentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["agents"],
  "properties": {
    "active_key": {
      "type": ["string", "null"],
      "description": "API key of the active agent"
    },
    "agents": {
      "type": "array",
      "description": "All stored agent records"
    }
  }
}`

// legacySchema describes the pre-multi-agent document, which held a
// single agent's fields at the top level. The "not" clause keeps a
// current document with a stray api_key field from matching.
const legacySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["api_key"],
  "properties": {
    "api_key": {
      "type": "string",
      "description": "API key of the single stored agent"
    }
  },
  "not": {"required": ["agents"]}
}`

type documentShape int

const (
	shapeUnknown documentShape = iota
	shapeCurrent
	shapeLegacy
)

// documentDecoder recognises the two credential file formats and
// decodes either into a State.
type documentDecoder struct {
	currentLoader gojsonschema.JSONLoader
	legacyLoader  gojsonschema.JSONLoader
}

func newDocumentDecoder() *documentDecoder {
	return &documentDecoder{
		currentLoader: gojsonschema.NewStringLoader(currentSchema),
		legacyLoader:  gojsonschema.NewStringLoader(legacySchema),
	}
}

// detect classifies raw file contents as current, legacy or unknown.
func (d *documentDecoder) detect(data []byte) documentShape {
	if matchesSchema(d.currentLoader, data) {
		return shapeCurrent
	}
	if matchesSchema(d.legacyLoader, data) {
		return shapeLegacy
	}
	return shapeUnknown
}

func matchesSchema(schema gojsonschema.JSONLoader, data []byte) bool {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return false
	}
	return result.Valid()
}

// decode parses file contents into a State, reporting the shape the
// document was found in. Legacy documents come back already migrated;
// the caller is responsible for persisting the upgrade. An unknown or
// unparsable document yields shapeUnknown and a zero state.
func (d *documentDecoder) decode(data []byte) (State, documentShape, error) {
	switch d.detect(data) {
	case shapeCurrent:
		var state State
		if err := json.Unmarshal(data, &state); err != nil {
			return State{}, shapeUnknown, fmt.Errorf("failed to parse credential file: %w", err)
		}
		if state.Agents == nil {
			state.Agents = []AgentRecord{}
		}
		return state, shapeCurrent, nil
	case shapeLegacy:
		var record AgentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return State{}, shapeUnknown, fmt.Errorf("failed to parse legacy credential file: %w", err)
		}
		return migrateLegacy(record), shapeLegacy, nil
	default:
		return State{}, shapeUnknown, nil
	}
}

// migrateLegacy lifts a single-agent document into the multi-agent
// shape, making the lone agent active.
func migrateLegacy(record AgentRecord) State {
	key := record.APIKey
	return State{
		ActiveKey: &key,
		Agents:    []AgentRecord{record},
	}
}
