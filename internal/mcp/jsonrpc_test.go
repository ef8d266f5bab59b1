package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"
)

// newEmptyServer creates a Server with no backing services. Only protocol
// methods that never reach a tool handler are safe to call on it.
func newEmptyServer() *Server {
	return NewServer(Deps{Version: "test"})
}

// runServer starts s.Run in a goroutine piped through pw/pr and returns
// a function that writes a request line and reads the response line.
// Close pw to trigger EOF. The returned cleanup func cancels the context.
func runServer(t *testing.T, s *Server) (
	sendLine func(line string) string,
	closePipe func(),
	cleanup func(),
) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	// Pipe: test writes to pw, server reads from pr.
	pr, pw := io.Pipe()
	// Pipe: server writes to sw, test reads from sr.
	sr, sw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, pr, sw)
	}()

	sendLine = func(line string) string {
		_, err := io.WriteString(pw, line+"\n")
		if err != nil {
			t.Fatalf("sendLine write: %v", err)
		}

		// Read one response line.
		buf := make([]byte, 1<<16)
		var out strings.Builder
		for {
			n, err := sr.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
				s := out.String()
				if idx := strings.IndexByte(s, '\n'); idx >= 0 {
					return s[:idx]
				}
			}
			if err != nil {
				t.Fatalf("sendLine read: %v", err)
			}
		}
	}

	closePipe = func() {
		_ = pw.Close()
	}

	cleanup = func() {
		cancel()
		_ = pw.Close()
		// Drain done channel.
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel+close")
		}
	}

	return sendLine, closePipe, cleanup
}

// TestRun_Initialize verifies the server responds to "initialize" with the
// correct protocolVersion and serverInfo.name.
func TestRun_Initialize(t *testing.T) {
	s := newEmptyServer()
	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	req := `{"jsonrpc":"2.0","id":1,"method":"initialize"}`
	resp := sendLine(req)

	var parsed struct {
		Result struct {
			ProtocolVersion string `json:"protocolVersion"`
			ServerInfo      struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if parsed.Result.ProtocolVersion == "" {
		t.Errorf("expected non-empty protocolVersion, got empty string; response: %s", resp)
	}
	if parsed.Result.ServerInfo.Name != "bip" {
		t.Errorf("expected serverInfo.name == 'bip', got %q; response: %s",
			parsed.Result.ServerInfo.Name, resp)
	}
}

// TestRun_ToolsList verifies the server lists every registered tool with a
// name and an input schema.
func TestRun_ToolsList(t *testing.T) {
	s := newEmptyServer()
	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	req := `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`
	resp := sendLine(req)

	var parsed struct {
		Result struct {
			Tools []struct {
				Name        string          `json:"name"`
				InputSchema json.RawMessage `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}

	want := []string{"tweet", "thread", "setup_auth", "status", "suggest", "save_context", "get_context", "configure"}
	if len(parsed.Result.Tools) != len(want) {
		t.Fatalf("expected %d tools, got %d; response: %s", len(want), len(parsed.Result.Tools), resp)
	}
	for i, tool := range parsed.Result.Tools {
		if tool.Name != want[i] {
			t.Errorf("tool %d: expected %q, got %q", i, want[i], tool.Name)
		}
		if len(tool.InputSchema) == 0 {
			t.Errorf("tool %q has no input schema", tool.Name)
		}
	}
}

// TestRun_ToolsCallTextResult verifies a string result is sent as-is and
// an error result is flagged isError.
func TestRun_ToolsCallTextResult(t *testing.T) {
	s := newEmptyServer()
	s.registerTool(toolDef{
		Name:        "echo",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, args json.RawMessage) (any, error) {
			return "plain text", nil
		},
	})
	s.registerTool(toolDef{
		Name:        "boom",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, args json.RawMessage) (any, error) {
			return nil, io.ErrUnexpectedEOF
		},
	})

	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	var parsed struct {
		Result toolsCallResult `json:"result"`
	}

	resp := sendLine(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo"}}`)
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if parsed.Result.IsError || parsed.Result.Content[0].Text != "plain text" {
		t.Errorf("unexpected echo result: %+v", parsed.Result)
	}

	resp = sendLine(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"boom","arguments":{}}}`)
	parsed.Result = toolsCallResult{}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if !parsed.Result.IsError || !strings.Contains(parsed.Result.Content[0].Text, "unexpected EOF") {
		t.Errorf("expected error result, got %+v", parsed.Result)
	}

	resp = sendLine(`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"missing"}}`)
	parsed.Result = toolsCallResult{}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if !parsed.Result.IsError || !strings.Contains(parsed.Result.Content[0].Text, "unknown tool: missing") {
		t.Errorf("expected unknown tool error, got %+v", parsed.Result)
	}
}

// TestRun_Prompts verifies prompts/list and prompts/get.
func TestRun_Prompts(t *testing.T) {
	s := newEmptyServer()
	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	resp := sendLine(`{"jsonrpc":"2.0","id":7,"method":"prompts/list"}`)
	var list struct {
		Result struct {
			Prompts []promptListEntry `json:"prompts"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp), &list); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if len(list.Result.Prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(list.Result.Prompts))
	}
	if q := list.Result.Prompts[1]; q.Name != "quick" || len(q.Arguments) != 1 || !q.Arguments[0].Required {
		t.Errorf("quick prompt should require a message argument, got %+v", q)
	}

	resp = sendLine(`{"jsonrpc":"2.0","id":8,"method":"prompts/get","params":{"name":"quick","arguments":{"message":"Shipped!"}}}`)
	var got struct {
		Result promptsGetResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp), &got); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if len(got.Result.Messages) != 1 || !strings.Contains(got.Result.Messages[0].Content.Text, `"Shipped!"`) {
		t.Errorf("quick prompt should quote the message, got %+v", got.Result)
	}

	resp = sendLine(`{"jsonrpc":"2.0","id":9,"method":"prompts/get","params":{"name":"quick"}}`)
	got.Result = promptsGetResult{}
	if err := json.Unmarshal([]byte(resp), &got); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if !strings.HasPrefix(got.Result.Messages[0].Content.Text, "Error:") {
		t.Errorf("quick prompt without message should explain the error, got %q", got.Result.Messages[0].Content.Text)
	}

	resp = sendLine(`{"jsonrpc":"2.0","id":10,"method":"prompts/get","params":{"name":"nope"}}`)
	var errResp struct {
		Error *jsonrpcError `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp), &errResp); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if errResp.Error == nil || errResp.Error.Code != -32602 {
		t.Errorf("expected -32602 for unknown prompt, got %s", resp)
	}
}

// TestRun_LargeLine verifies requests larger than the default scanner
// buffer are accepted.
func TestRun_LargeLine(t *testing.T) {
	s := newEmptyServer()
	var got int
	s.registerTool(toolDef{
		Name: "size",
		Handler: func(_ context.Context, args json.RawMessage) (any, error) {
			got = len(args)
			return map[string]int{"bytes": len(args)}, nil
		},
	})
	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	big := strings.Repeat("x", 200*1024)
	resp := sendLine(`{"jsonrpc":"2.0","id":11,"method":"tools/call","params":{"name":"size","arguments":{"blob":"` + big + `"}}}`)
	if !strings.Contains(resp, `\"bytes\"`) {
		t.Fatalf("unexpected response: %.200s", resp)
	}
	if got < 200*1024 {
		t.Errorf("expected handler to see the whole payload, got %d bytes", got)
	}
}

// TestRun_UnknownMethod verifies that an unknown method returns JSON-RPC
// error code -32601.
func TestRun_UnknownMethod(t *testing.T) {
	s := newEmptyServer()
	sendLine, _, cleanup := runServer(t, s)
	defer cleanup()

	req := `{"jsonrpc":"2.0","id":3,"method":"nonexistent/method"}`
	resp := sendLine(req)

	var parsed struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp)
	}
	if parsed.Error == nil {
		t.Fatalf("expected error in response, got none; response: %s", resp)
	}
	if parsed.Error.Code != -32601 {
		t.Errorf("expected error code -32601, got %d; response: %s", parsed.Error.Code, resp)
	}
}

// TestRun_Notification verifies that a message without an "id" field
// (a JSON-RPC notification) produces no response.
func TestRun_Notification(t *testing.T) {
	s := newEmptyServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	sr, sw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, pr, sw)
	}()

	// Send a notification (no "id" field).
	notification := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n"
	if _, err := io.WriteString(pw, notification); err != nil {
		t.Fatalf("write notification: %v", err)
	}

	// After writing the notification, attempt to read a response with a short
	// deadline. We expect nothing to be written.
	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 1024)
		n, _ := sr.Read(buf)
		readDone <- buf[:n]
	}()

	select {
	case data := <-readDone:
		t.Errorf("expected no response for notification, but got: %s", data)
	case <-time.After(100 * time.Millisecond):
		// Correct: no response was written within the deadline.
	}

	// Clean up.
	cancel()
	_ = pw.Close()
	_ = sr.Close()
}

// TestRun_ContextCancel verifies that cancelling the context causes Run to
// return nil.
func TestRun_ContextCancel(t *testing.T) {
	s := newEmptyServer()
	ctx, cancel := context.WithCancel(context.Background())

	pr, pw := io.Pipe()
	_, sw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, pr, sw)
	}()

	// Cancel the context and expect Run to return nil.
	cancel()
	_ = pw.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected Run to return nil on context cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not return after context cancel")
	}
}

// TestRun_EOFClean verifies that closing the writer side of the input pipe
// causes Run to return nil (clean EOF).
func TestRun_EOFClean(t *testing.T) {
	s := newEmptyServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	_, sw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, pr, sw)
	}()

	// Close the write side to signal EOF.
	_ = pw.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected Run to return nil on EOF, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not return after EOF")
	}
}
