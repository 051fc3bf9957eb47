package relaytests

import (
	"fmt"

	"github.com/relaygo/relay-test-harness/bridge"
	"github.com/relaygo/relay-test-harness/framework/steps"
	"github.com/relaygo/relay-test-harness/relaydef"
)

// BridgeSuiteName is the header of the bridge suite.
const BridgeSuiteName = "Bridge (direct Unix socket)"

// Labels of the bridge suite's steps.
const (
	StepListTools          = "ListTools"
	StepListToolsRepeat    = "ListTools (repeat)"
	StepUnknownRequestType = "unknown request type"
)

// StepCallTool returns the label of the bridge step that invokes the named tool.
func StepCallTool(tool string) string { return fmt.Sprintf("CallTool(%s)", tool) }

type bridgeSuite struct {
	config    Config
	client    *bridge.Client
	clientErr error
	toolNames []string
}

// BridgeSuite builds the bridge sequence: list the tools, then invoke the configured tool.
// With probes enabled it also lists the tools again and sends a request of an unknown type.
func BridgeSuite(config Config) *steps.Sequence {
	seq := steps.NewSequence(BridgeSuiteName)
	b := &bridgeSuite{config: config}
	b.client, b.clientErr = bridge.NewClient(config.SocketPath, config.Token,
		bridge.WithReadTimeout(config.ReadTimeout), bridge.WithLogger(seq.Logger()))

	seq.Add(
		steps.Step{Name: StepListTools, Gate: true, Action: b.listTools},
		steps.Step{Name: StepCallTool(config.Tool), Gate: true, Action: b.callTool},
	)
	if config.Probes {
		seq.Add(
			steps.Step{Name: StepListToolsRepeat, Action: b.listToolsAgain},
			steps.Step{Name: StepUnknownRequestType, Action: b.unknownRequestType},
		)
	}
	return seq
}

func (b *bridgeSuite) list() ([]string, steps.Outcome) {
	if b.clientErr != nil {
		return nil, steps.Fail(b.clientErr)
	}
	reply, err := b.client.ListTools()
	if err != nil {
		return nil, steps.Fail(err)
	}
	switch r := reply.(type) {
	case relaydef.ToolsReply:
		names := ToolNames(r.Tools)
		return names, steps.Pass(ToolNamesSummary(names))
	case relaydef.ErrorReply:
		return nil, steps.Failf("%s", bridgeErrorDetail(r))
	default:
		return nil, steps.Failf("unexpected %q reply to %s", reply.ReplyType(), relaydef.BridgeListTools)
	}
}

func (b *bridgeSuite) listTools() steps.Outcome {
	names, outcome := b.list()
	b.toolNames = names
	return outcome
}

func (b *bridgeSuite) listToolsAgain() steps.Outcome {
	names, outcome := b.list()
	if outcome.Failed() {
		return outcome
	}
	return repeatListingOutcome(b.toolNames, names)
}

func (b *bridgeSuite) callTool() steps.Outcome {
	if b.clientErr != nil {
		return steps.Fail(b.clientErr)
	}
	reply, err := b.client.CallTool(b.config.Tool, nil)
	if err != nil {
		return steps.Fail(err)
	}
	switch r := reply.(type) {
	case relaydef.ResultReply:
		return toolResultOutcome(r.Result)
	case relaydef.ErrorReply:
		return steps.Failf("%s", bridgeErrorDetail(r))
	default:
		return steps.Failf("unexpected %q reply to %s", reply.ReplyType(), relaydef.BridgeCallTool)
	}
}

func (b *bridgeSuite) unknownRequestType() steps.Outcome {
	if b.clientErr != nil {
		return steps.Fail(b.clientErr)
	}
	reply, err := b.client.SendType(relaydef.BridgeNoSuchRequest)
	if err != nil {
		return steps.Fail(err)
	}
	if r, ok := reply.(relaydef.ErrorReply); ok {
		return steps.Pass(rejectedDetail(r.AsApplicationError()))
	}
	return steps.Failf("expected an %q reply, got %q", relaydef.BridgeReplyError, reply.ReplyType())
}
