// Package main provides a keystroke plugin for Linux.
// It types committed keys into the focused window via xdotool.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Key    string          `json:"key"`
	Text   string          `json:"text"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// keysyms maps special keyboard labels to X keysym names.
var keysyms = map[string]string{
	"SPACE": "space",
	"BKSP":  "BackSpace",
	"ENTER": "Return",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "keystroke":
		if err := handleKeystroke(req.Key); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

// handleKeystroke types a single committed key.
func handleKeystroke(key string) error {
	sym, err := keysym(key)
	if err != nil {
		return err
	}
	return runXDoTool("key", "--clearmodifiers", sym)
}

// keysym converts a keyboard label to an xdotool key name.
func keysym(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	if sym, ok := keysyms[key]; ok {
		return sym, nil
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		return strings.ToLower(key), nil
	}
	return "", fmt.Errorf("unsupported key %q", key)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runXDoTool executes xdotool and returns any error.
func runXDoTool(args ...string) error {
	cmd := exec.Command("xdotool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
