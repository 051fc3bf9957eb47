package relaytests

import (
	"fmt"
	"strings"

	"github.com/relaygo/relay-test-harness/framework/helpers"
	"github.com/relaygo/relay-test-harness/framework/steps"
	"github.com/relaygo/relay-test-harness/relaydef"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/exp/slices"
)

const (
	previewLength      = 120
	previewEllipsis    = "..."
	maxNamesInSummary  = 8
	noTextContentLabel = "(no text content)"
)

// Preview returns text unchanged if it has at most 120 characters, or else its first 120
// characters followed by "...".
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + previewEllipsis
}

// ToolNames returns the name of each tool, with "?" for a tool that has none.
func ToolNames(tools []*mcp.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, relaydef.ToolName(t))
	}
	return names
}

// ToolNamesSummary describes a tool listing as "N tools: a, b, c", naming at most the first
// eight and adding "..." if there are more.
func ToolNamesSummary(names []string) string {
	if len(names) == 0 {
		return "0 tools"
	}
	shown, more := helpers.FirstN(names, maxNamesInSummary)
	return fmt.Sprintf("%d tools: %s%s", len(names), strings.Join(shown, ", "),
		helpers.IfElse(more, previewEllipsis, ""))
}

// SameToolNames returns true if the two listings contain the same names, ignoring order.
func SameToolNames(first, second []string) bool {
	return slices.Equal(helpers.Sorted(first), helpers.Sorted(second))
}

// toolResultOutcome turns a tool result into an outcome: a preview of its first text block,
// or a failure if the tool flagged the result as an error.
func toolResultOutcome(result relaydef.CallToolResult) steps.Outcome {
	text, found := result.FirstText()
	if result.IsError {
		return steps.Failf("tool reported error: %s", helpers.IfElse(found, Preview(text), noTextContentLabel))
	}
	if !found {
		return steps.Pass(noTextContentLabel)
	}
	return steps.Pass(Preview(text))
}

func repeatListingOutcome(first, second []string) steps.Outcome {
	if SameToolNames(first, second) {
		return steps.Passf("same %d tools", len(second))
	}
	return steps.Failf("tool names changed: first [%s], then [%s]",
		strings.Join(helpers.Sorted(first), ", "), strings.Join(helpers.Sorted(second), ", "))
}

func bridgeErrorDetail(reply relaydef.ErrorReply) string {
	return fmt.Sprintf("bridge error (code %d): %s", reply.Code, reply.Message)
}

func rpcErrorDetail(reply relaydef.RPCError) string {
	appErr := reply.AsApplicationError()
	detail := fmt.Sprintf("rpc error (code %d): %s", appErr.Code, appErr.Message)
	if appErr.Data != nil {
		detail += " (data: " + helpers.CanonicalizedRawJSON(appErr.Data) + ")"
	}
	return detail
}

func rejectedDetail(appErr relaydef.ApplicationError) string {
	return fmt.Sprintf("rejected (code %d): %s", appErr.Code, appErr.Message)
}
