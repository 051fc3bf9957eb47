package mockrelay

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SDKRelayName and SDKRelayVersion are what the SDK-backed relay reports in serverInfo.
const (
	SDKRelayName    = "relay"
	SDKRelayVersion = "1.0.0"
)

// RunSDKRelay serves MCP over the process's standard input and output using the official
// SDK's server, with one tool for each name. Calling a tool returns "called <name>". It
// returns when the input ends.
func RunSDKRelay(ctx context.Context, toolNames ...string) error {
	server := mcp.NewServer(&mcp.Implementation{Name: SDKRelayName, Version: SDKRelayVersion}, nil)
	for _, name := range toolNames {
		text := "called " + name
		mcp.AddTool(server, &mcp.Tool{Name: name, Description: "tool " + name},
			func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, any, error) {
				return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
			})
	}
	return server.Run(ctx, &mcp.StdioTransport{})
}
