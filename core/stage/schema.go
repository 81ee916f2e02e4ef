/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package stage

import (
	"encoding/json"
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
)

var ErrBadCatalogue = errors.New("bad stage catalogue")

// CatalogueSchema is the JSON schema a catalogue document must satisfy
// before stages are decoded from it.
const CatalogueSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["stages"],
  "additionalProperties": false,
  "properties": {
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "module": {"type": "string", "minLength": 1},
        "description": {"type": "string"}
      }
    },
    "stages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Za-z0-9_.-]+$"},
          "module": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "description": {"type": "string"},
          "dependsOn": {"type": "string"}
        }
      }
    }
  }
}`

// decodeRaw turns a generic YAML or TOML document into a Catalogue: the
// document is checked against CatalogueSchema, then the defaults block is
// merged into every stage that leaves the key unset or empty.
func decodeRaw(raw interface{}) (*Catalogue, error) {
	// normalize whatever the parser produced into plain JSON values
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
	}
	var doc map[string]interface{}
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
	}

	if err = validateSchema(doc); err != nil {
		return nil, err
	}

	defaults, _ := doc["defaults"].(map[string]interface{})
	stages, _ := doc["stages"].([]interface{})
	for i, item := range stages {
		st, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if len(defaults) > 0 {
			if err = mergo.Merge(&st, defaults); err != nil {
				return nil, fmt.Errorf("%w: stage #%d: %w", ErrBadCatalogue, i, err)
			}
		}
		stages[i] = st
	}

	data, err = json.Marshal(map[string]interface{}{"stages": stages})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
	}
	c := &Catalogue{}
	if err = json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
	}
	return c, nil
}

func validateSchema(doc interface{}) error {
	schemaLoader := gojsonschema.NewStringLoader(CatalogueSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: cannot load schema: %w", ErrBadCatalogue, err)
	}
	if result.Valid() {
		return nil
	}

	var merr *multierror.Error
	for _, desc := range result.Errors() {
		merr = multierror.Append(merr, errors.New(desc.String()))
	}
	return fmt.Errorf("%w: %w", ErrBadCatalogue, merr.ErrorOrNil())
}
