// Package toolexec implements the §4.5/§6.3 Tool Executor: the single
// get_device_running_config tool and the HTTP client that calls out to the
// Simulator collaborator. Grounded on the teacher's agent_tool.go adapters
// (Tool.Spec/Execute shape, AsUTCPTool registration) and on go-utcp's
// in-process-handler provider pattern, which exposes the tool through a
// transport-agnostic calling convention alongside the catalog the graph
// dispatches through.
package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SimulatorClient calls the §6.3 HTTP JSON endpoint:
// get_device_running_config(device_name) -> {config: string}.
type SimulatorClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewSimulatorClient(baseURL string, timeout time.Duration) *SimulatorClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SimulatorClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

type runningConfigResponse struct {
	Config string `json:"config"`
}

// FetchRunningConfig performs the 10s-bounded call. Non-2xx and transport
// errors are both surfaced as plain Go errors; the caller (DeviceConfigTool)
// is responsible for folding them into the "tool_error: ..." string the
// model sees, per §4.5.
func (c *SimulatorClient) FetchRunningConfig(ctx context.Context, deviceName string) (string, error) {
	endpoint, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid simulator base_url: %w", err)
	}
	endpoint.Path = joinPath(endpoint.Path, "device_config")
	q := endpoint.Query()
	q.Set("device_name", deviceName)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("simulator returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("simulator returned %d for device %q", resp.StatusCode, deviceName)
	}

	var body runningConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding simulator response: %w", err)
	}
	return body.Config, nil
}

func joinPath(base, segment string) string {
	if base == "" || base == "/" {
		return "/" + segment
	}
	if base[len(base)-1] == '/' {
		return base + segment
	}
	return base + "/" + segment
}
