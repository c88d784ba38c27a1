package tunnel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultAPIURL is the ngrok agent's local control API.
const DefaultAPIURL = "http://127.0.0.1:4040"

// tunnelRequest is the body of POST /api/tunnels.
type tunnelRequest struct {
	Name  string `json:"name"`
	Proto string `json:"proto"`
	Addr  string `json:"addr"`
}

// tunnelResource is the agent's representation of one tunnel.
type tunnelResource struct {
	Name      string `json:"name"`
	URI       string `json:"uri"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Config    struct {
		Addr string `json:"addr"`
	} `json:"config"`
}

// agentAPI is a minimal client for the agent's control API.
type agentAPI struct {
	baseURL string
	client  *http.Client
}

func newAgentAPI(baseURL string) *agentAPI {
	return &agentAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ready reports whether the agent answers on its control API yet.
func (a *agentAPI) ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tunnels", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// createTunnel asks the agent to open a tunnel and returns its resource.
func (a *agentAPI) createTunnel(ctx context.Context, name, proto, addr string) (*tunnelResource, error) {
	body, err := json.Marshal(tunnelRequest{Name: name, Proto: proto, Addr: addr})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/tunnels", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create tunnel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Msg string `json:"msg"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Msg != "" {
			return nil, fmt.Errorf("create tunnel: HTTP %s: %s", resp.Status, apiErr.Msg)
		}
		return nil, fmt.Errorf("create tunnel: HTTP %s", resp.Status)
	}

	var t tunnelResource
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("create tunnel: invalid JSON: %w", err)
	}
	return &t, nil
}

// getTunnel fetches one tunnel by name. Used to poll until public_url is set.
func (a *agentAPI) getTunnel(ctx context.Context, name string) (*tunnelResource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tunnels/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get tunnel: HTTP %s", resp.Status)
	}
	var t tunnelResource
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// deleteTunnel closes one tunnel by name.
func (a *agentAPI) deleteTunnel(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/api/tunnels/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("close tunnel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("close tunnel: HTTP %s", resp.Status)
	}
	return nil
}
