package tools

import (
	"context"
	"encoding/json"
)

// Tool is the interface for all tools the model may call.
type Tool interface {
	Name() string
	Description() string
	// Schema is the JSON schema of the arguments object.
	Schema() json.RawMessage
	// Run executes the tool with JSON encoded arguments.
	Run(ctx context.Context, args string) (string, error)
}

// emptySchema is used when a tool does not describe its arguments.
var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)
