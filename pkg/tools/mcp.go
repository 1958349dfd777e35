package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/logger"
)

// MCPClient is the part of an MCP client the tool bridge needs.
type MCPClient interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// LoadMCP connects to every configured MCP server and registers its tools.
// Servers that fail to connect are logged and skipped.
func LoadMCP(ctx context.Context, servers []config.MCPServerConfig) *ToolManager {
	m := NewToolManager()
	for _, serverCfg := range servers {
		c, err := ConnectMCP(ctx, serverCfg)
		if err != nil {
			logger.L.Error("failed to connect MCP server", "name", serverCfg.Name, "type", serverCfg.Type, "error", err)
			continue
		}
		n, err := RegisterMCP(ctx, m, serverCfg.Name, c)
		if err != nil {
			logger.L.Warn("failed to list tools for MCP server", "name", serverCfg.Name, "error", err)
		}
		logger.L.Info("MCP server connected", "name", serverCfg.Name, "tools", n)
	}
	if len(servers) > 0 && m.Len() == 0 {
		logger.L.Warn("MCP servers configured but no tools registered", "servers", len(servers))
	}
	return m
}

// ConnectMCP starts and initializes a client for one server.
func ConnectMCP(ctx context.Context, serverCfg config.MCPServerConfig) (*client.Client, error) {
	var (
		c   *client.Client
		err error
	)
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		c, err = client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		c, err = client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		env := make([]string, 0, len(serverCfg.Env))
		for k, v := range serverCfg.Env {
			env = append(env, k+"="+v)
		}
		c, err = client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type %q (want sse, streamable_http or stdio)", serverCfg.Type)
	}
	if err != nil {
		return nil, err
	}

	// stdio clients start on creation
	if serverCfg.Type != config.ClientTypeStdio {
		if err := c.Start(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("starting transport: %w", err), c.Close())
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "echoal", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, errors.Join(fmt.Errorf("initializing: %w", err), c.Close())
	}
	return c, nil
}

// RegisterMCP lists the tools of c and registers them on m. Tools whose name
// is already taken are skipped. c is closed together with m.
func RegisterMCP(ctx context.Context, m *ToolManager, server string, c MCPClient) (int, error) {
	m.addCloser(c)

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range res.Tools {
		tool := &mcpTool{server: server, client: c, tool: t}
		if err := m.RegisterTool(tool); err != nil {
			logger.L.Warn("skipping MCP tool", "tool", t.Name, "server", server, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

// mcpTool exposes one tool of an MCP server.
type mcpTool struct {
	server string
	client MCPClient
	tool   mcp.Tool
}

func (t *mcpTool) Name() string        { return t.tool.Name }
func (t *mcpTool) Description() string { return t.tool.Description }

func (t *mcpTool) Schema() json.RawMessage {
	if raw := t.tool.RawInputSchema; len(raw) > 0 && string(raw) != "null" {
		return raw
	}
	if t.tool.InputSchema.Type == "" {
		return emptySchema
	}
	b, err := json.Marshal(t.tool.InputSchema)
	if err != nil || string(b) == "{}" || string(b) == "null" {
		return emptySchema
	}
	return b
}

func (t *mcpTool) Run(ctx context.Context, args string) (string, error) {
	toolArgs := map[string]any{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
			return "", fmt.Errorf("could not parse arguments for tool %s: %w", t.tool.Name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.tool.Name
	req.Params.Arguments = toolArgs

	logger.L.Debug("calling MCP tool", "tool", t.tool.Name, "server", t.server)
	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	text := firstText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool execution failed without details"
		}
		return "", errors.New(text)
	}
	if text == "" {
		b, err := json.Marshal(res)
		if err != nil {
			return "", fmt.Errorf("formatting result: %w", err)
		}
		text = string(b)
	}
	return text, nil
}

func firstText(content []mcp.Content) string {
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
