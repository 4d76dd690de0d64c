package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled schemas by Schema.Name. Names are unique per process.
var (
	schemasMu sync.Mutex
	schemas   = map[string]*jsonschema.Schema{}
)

// ValidateJSON checks raw against schema. A nil schema accepts anything.
// Failures are *ErrInvalidResponse carrying raw.
func ValidateJSON(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("schema %q: %w", schema.Name, err)}
	}
	return nil
}

// checkContent rejects output cut off at the token limit, then validates it
// against the request schema.
func checkContent(ctx context.Context, req Request, content json.RawMessage, stopReason string) error {
	switch stopReason {
	case StopMaxTokens:
		return &ErrMaxTokensExceeded{Content: content}
	case StopRefused:
		return &ErrRefused{Reason: PurposeFrom(ctx) + " request"}
	}
	return ValidateJSON(req.Schema, content)
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	if s, ok := schemas[schema.Name]; ok {
		return s, nil
	}

	// The compiler wants a decoded JSON value, so round-trip the Go map to
	// normalize numbers and slices.
	b, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	url := "schema://" + schema.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemas[schema.Name] = s
	return s, nil
}
