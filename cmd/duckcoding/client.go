package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// commandAddr is the loopback base URL every non-daemon subcommand talks
// to — the "standalone" half of the command surface's dispatch, dialed
// over HTTP exactly as `ctrlai status` dials the running proxy's
// /health and /api/agents instead of reading files directly.
func commandAddr() string {
	return fmt.Sprintf("http://127.0.0.1:%d", commandPort)
}

type wireErrorResponse struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type wireEnvelope struct {
	OK    bool               `json:"ok"`
	Data  json.RawMessage    `json:"data,omitempty"`
	Error *wireErrorResponse `json:"error,omitempty"`
}

// call posts a named command with params to the running daemon's command
// port and decodes its data payload into out (pass a pointer, or nil to
// discard the payload).
func call(name string, params any, out any) error {
	body, err := json.Marshal(struct {
		Command string `json:"command"`
		Params  any    `json:"params"`
	}{Command: name, Params: params})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(commandAddr()+"/cmd", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (is it running? try 'duckcoding daemon -d'): %w", commandAddr(), err)
	}
	defer resp.Body.Close()

	var env wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("%s: %s", env.Error.Kind, env.Error.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	return nil
}
