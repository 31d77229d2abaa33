/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// reflector produces inline schemas suitable for tool definitions: no $ref
// indirection, required fields driven by struct tags.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// inputSchema reflects a tool's typed parameter struct into the schema shape
// the Messages API expects. Tool parameter structs are fixed at compile
// time, so reflection failures are programmer errors and panic.
func inputSchema(v any) anthropic.ToolInputSchemaParam {
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("marshaling tool schema for %T: %v", v, err))
	}

	var s struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		panic(fmt.Sprintf("unmarshaling tool schema for %T: %v", v, err))
	}

	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: s.Properties,
		Required:   s.Required,
	}
}
