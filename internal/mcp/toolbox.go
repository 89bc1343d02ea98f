package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// Tool defines the behavior of a single MCP tool.
type Tool interface {
	Descriptor() protocol.ToolDescriptor
	Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError)
}

// Toolbox stores and dispatches tools by name. Registration order is
// preserved: tools/list reports descriptors in the order tools were added,
// stable for the process lifetime.
type Toolbox struct {
	order []string
	tools map[string]Tool
}

// NewToolbox constructs a toolbox with the provided tools.
func NewToolbox(tools ...Tool) *Toolbox {
	tb := &Toolbox{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		desc := t.Descriptor()
		if _, dup := tb.tools[desc.Name]; dup {
			continue
		}
		tb.order = append(tb.order, desc.Name)
		tb.tools[desc.Name] = t
	}
	return tb
}

// Describe returns all tool descriptors in registration order.
func (tb *Toolbox) Describe() []protocol.ToolDescriptor {
	list := make([]protocol.ToolDescriptor, 0, len(tb.order))
	for _, name := range tb.order {
		list = append(list, tb.tools[name].Descriptor())
	}
	return list
}

// Call validates the arguments against the tool's declared schema, then
// invokes it. Validation happens here so every tool sees only arguments
// that already match its descriptor.
func (tb *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	tool, ok := tb.tools[name]
	if !ok {
		return protocol.CallResult{}, &protocol.ResponseError{
			Code:    protocol.CodeUnknownTool,
			Message: fmt.Sprintf("unknown tool: %s", name),
		}
	}
	normalized, err := validateArguments(tool.Descriptor().InputSchema, args)
	if err != nil {
		return protocol.CallResult{}, &protocol.ResponseError{
			Code:    protocol.CodeInvalidArgument,
			Message: err.Error(),
		}
	}
	return tool.Invoke(ctx, normalized)
}
