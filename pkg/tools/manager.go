package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ErrToolNotFound is returned for unknown tool names.
var ErrToolNotFound = errors.New("tool not found")

// ToolManager manages the available tools. Tools are registered at startup;
// lookups are safe for concurrent use afterwards.
type ToolManager struct {
	tools   map[string]Tool
	closers []io.Closer
}

// NewToolManager creates a new ToolManager
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool. Names must be unique.
func (m *ToolManager) RegisterTool(tool Tool) error {
	if _, exists := m.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name())
	}
	m.tools[tool.Name()] = tool
	return nil
}

// List returns all registered tools ordered by name
func (m *ToolManager) List() []Tool {
	if m == nil {
		return nil
	}
	ts := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		ts = append(ts, t)
	}
	slices.SortFunc(ts, func(a, b Tool) int { return strings.Compare(a.Name(), b.Name()) })
	return ts
}

// Len returns the number of registered tools.
func (m *ToolManager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.tools)
}

// GetTool retrieves a tool by name
func (m *ToolManager) GetTool(name string) (Tool, error) {
	if m != nil {
		if tool, ok := m.tools[name]; ok {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// Run looks up and executes a tool.
func (m *ToolManager) Run(ctx context.Context, name, args string) (string, error) {
	tool, err := m.GetTool(name)
	if err != nil {
		return "", err
	}
	return tool.Run(ctx, args)
}

// Close releases every resource attached with addCloser.
func (m *ToolManager) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

func (m *ToolManager) addCloser(c io.Closer) {
	m.closers = append(m.closers, c)
}
