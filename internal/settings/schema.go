package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the structural contract for the on-disk document.
// Unknown fields pass through untouched; missing required fields fail
// the load with a descriptive error instead of silently zeroing.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "app_settings", "keybinds", "targets"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "app_settings": {
      "type": "object",
      "properties": {
        "autostart": {"type": "boolean"},
        "always_on_top": {"type": "boolean"},
        "play_join_sound": {"type": "boolean"},
        "show_notifications": {"type": "boolean"},
        "theme": {"enum": ["light", "dark", "system"]}
      }
    },
    "keybinds": {
      "type": "object",
      "required": ["join_primary", "hangup"],
      "properties": {
        "join_primary": {"type": "string"},
        "hangup": {"type": "string"},
        "target_hotkeys": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        },
        "toggle_mute": {"type": "string"},
        "toggle_video": {"type": "string"}
      }
    },
    "targets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label", "code", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "code": {"type": "string", "minLength": 1},
          "type": {"enum": ["person", "group"]},
          "is_primary": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("settings.schema.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("settings.schema.json")
	})
	return schema, schemaErr
}

// validateDocument checks raw JSON against the settings schema.
func validateDocument(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("parse settings document: %w", err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("validate settings document: %w", err)
	}
	return nil
}
