package blockview

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const blockStateSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "ref": {
      "type": "object",
      "required": ["model"],
      "properties": {
        "model": {"type": "string", "minLength": 1},
        "x": {"enum": [0, 90, 180, 270]},
        "y": {"enum": [0, 90, 180, 270]},
        "uvlock": {"type": "boolean"},
        "weight": {"type": "integer", "minimum": 1}
      }
    },
    "refs": {
      "oneOf": [
        {"$ref": "#/definitions/ref"},
        {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/ref"}}
      ]
    },
    "when": {"type": "object"}
  },
  "type": "object",
  "properties": {
    "variants": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/refs"}
    },
    "multipart": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["apply"],
        "properties": {
          "when": {"$ref": "#/definitions/when"},
          "apply": {"$ref": "#/definitions/refs"}
        }
      }
    }
  }
}`

const modelSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "vec3": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3},
    "face": {
      "type": "object",
      "required": ["texture"],
      "properties": {
        "texture": {"type": "string"},
        "uv": {"type": "array", "items": {"type": "number"}, "minItems": 4, "maxItems": 4},
        "cullface": {"enum": ["down", "bottom", "up", "north", "south", "west", "east"]},
        "rotation": {"enum": [0, 90, 180, 270]},
        "tintindex": {"type": "integer"}
      }
    }
  },
  "type": "object",
  "properties": {
    "parent": {"type": "string"},
    "ambientocclusion": {"type": "boolean"},
    "textures": {"type": "object", "additionalProperties": {"type": "string"}},
    "elements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to", "faces"],
        "properties": {
          "from": {"$ref": "#/definitions/vec3"},
          "to": {"$ref": "#/definitions/vec3"},
          "shade": {"type": "boolean"},
          "rotation": {
            "type": "object",
            "required": ["origin", "axis", "angle"],
            "properties": {
              "origin": {"$ref": "#/definitions/vec3"},
              "axis": {"enum": ["x", "y", "z"]},
              "angle": {"type": "number", "minimum": -45, "maximum": 45},
              "rescale": {"type": "boolean"}
            }
          },
          "faces": {
            "type": "object",
            "propertyNames": {"enum": ["down", "bottom", "up", "north", "south", "west", "east"]},
            "additionalProperties": {"$ref": "#/definitions/face"}
          }
        }
      }
    }
  }
}`

var (
	blockStateSchema = jsonschema.MustCompileString("blockstate.schema.json", blockStateSchemaJSON)
	modelSchema      = jsonschema.MustCompileString("model.schema.json", modelSchemaJSON)
)

// validateDocument checks raw JSON against s. A nil schema accepts anything.
func validateDocument(s *jsonschema.Schema, data []byte) error {
	if s == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
