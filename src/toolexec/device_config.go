package toolexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/base"
	"github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	core "github.com/netlab-tutor/tutor-core"
)

// DeviceConfigTool implements get_device_running_config (§4.5), the one
// tool this system exposes to the model. It satisfies core.Tool directly for
// the graph's own catalog/dispatch loop, and AsUTCPTool below additionally
// exposes it through go-utcp's in-process provider convention (grounded on
// the teacher's Agent.AsUTCPTool) for callers that want a transport-agnostic
// registry instead of the catalog.
type DeviceConfigTool struct {
	Client *SimulatorClient
}

func NewDeviceConfigTool(client *SimulatorClient) *DeviceConfigTool {
	return &DeviceConfigTool{Client: client}
}

func (t *DeviceConfigTool) Spec() core.ToolSpec {
	return core.ToolSpec{
		Name:        "get_device_running_config",
		Description: "Fetch the running configuration of a device in the current lab topology.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"device_name": map[string]any{
					"type":        "string",
					"description": "Name of the device as it appears in the lab topology (e.g. \"R1\").",
				},
			},
			"required": []string{"device_name"},
		},
	}
}

// Execute never returns a Go error for an expected failure (timeout, 5xx,
// bad argument) — those come back as "tool_error: <reason>" text so the
// model can keep going, per §4.5/§7.
func (t *DeviceConfigTool) Execute(ctx context.Context, arguments map[string]any) (string, error) {
	deviceName, _ := arguments["device_name"].(string)
	deviceName = strings.TrimSpace(deviceName)
	if deviceName == "" {
		return "tool_error: missing device_name", nil
	}

	config, err := t.Client.FetchRunningConfig(ctx, deviceName)
	if err != nil {
		return fmt.Sprintf("tool_error: %s", shortReason(err)), nil
	}
	return config, nil
}

// shortReason trims a wrapped error down to something safe to hand the
// model: no stack-shaped detail, just the proximate cause.
func shortReason(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

// AsUTCPTool exposes the same dispatch as a go-utcp tools.Tool with an
// in-process handler, mirroring the teacher's Agent.AsUTCPTool: no remote
// transport, the handler closes directly over this tool's Execute.
func (t *DeviceConfigTool) AsUTCPTool() tools.Tool {
	return tools.Tool{
		Name:        "get_device_running_config",
		Description: t.Spec().Description,
		Provider: &base.BaseProvider{
			Name:         "netlab_tutor",
			ProviderType: base.ProviderCLI,
		},
		Inputs: tools.ToolInputOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"device_name": map[string]any{
					"type":        "string",
					"description": "Name of the device as it appears in the lab topology.",
				},
			},
			Required: []string{"device_name"},
		},
		Outputs: tools.ToolInputOutputSchema{
			Type:       "object",
			Properties: map[string]any{"config": map[string]any{"type": "string"}},
		},
		Handler: tools.ToolHandler(func(ctx context.Context, inputs map[string]interface{}) (any, error) {
			result, err := t.Execute(ctx, inputs)
			if err != nil {
				return nil, err
			}
			return result, nil
		}),
	}
}

var _ core.Tool = (*DeviceConfigTool)(nil)
