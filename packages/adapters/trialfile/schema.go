package trialfile

// documentSchema accepts a single trial, a list of trials, or {"trials": [...]}
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "trialxml trial document",
  "definitions": {
    "outcome": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string"},
        "passed": {"type": "boolean"},
        "error": {"type": "string"}
      },
      "additionalProperties": false
    },
    "trial": {
      "type": "object",
      "required": ["name", "outcomes"],
      "properties": {
        "name": {"type": "string"},
        "tests": {"type": "integer", "minimum": 0},
        "failures": {"type": "integer", "minimum": 0},
        "outcomes": {
          "type": "array",
          "items": {"$ref": "#/definitions/outcome"}
        }
      },
      "additionalProperties": false
    }
  },
  "anyOf": [
    {"$ref": "#/definitions/trial"},
    {"type": "array", "items": {"$ref": "#/definitions/trial"}},
    {
      "type": "object",
      "required": ["trials"],
      "properties": {
        "trials": {"type": "array", "items": {"$ref": "#/definitions/trial"}}
      },
      "additionalProperties": false
    }
  ]
}`
