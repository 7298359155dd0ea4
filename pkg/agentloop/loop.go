// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package agentloop drives one agent-turn's exchange with the LLM
// provider: request assembly, HTTP retry with backoff modeled on
// pkg/httpclient, and the in-conversation repair ladder described in
// spec §4.7.
package agentloop

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/httpclient"
	"github.com/kadirpekel/hll/pkg/utils"
)

// MaxReplyAttempts is the compile-time repair-ladder bound (spec §4.7's
// MAX).
const MaxReplyAttempts = 6

// Mode selects the turn the loop is driving.
type Mode string

const (
	ModeReply  Mode = "reply"
	ModeAction Mode = "action"
	ModeBranch Mode = "branch"
)

// Action is one permitted tool the agent may call, with any pre-bound
// default arguments. The tool declarations sent to the model carry
// only each action's name; no argument schema is sent, so there is
// nothing to strip the pre-bound arguments from.
type Action struct {
	Name         string
	DefaultArgs  map[string]any
	PreBoundKeys []string
}

// Request is one agent-turn's inputs.
type Request struct {
	Context         []any
	Mode            Mode
	Actions         []Action
	Module          string
	DependencyGraph any
}

// Result is what the loop returns on success.
type Result struct {
	Context         []any
	DependencyGraph any
	Answer          bool
}

// Loop owns the HTTP client, the provider endpoint, and the command
// server client the loop delegates side effects to.
type Loop struct {
	HTTPClient  *httpclient.Client
	Endpoint    string
	APIKey      string
	Model       string
	CmdServer   *cmdserver.Client
	Logger      *slog.Logger
	Stdin       io.Reader
	Stdout      io.Writer
	baseBackoff time.Duration
	maxBackoff  time.Duration

	tokens *utils.TokenCounter
}

// New returns a Loop with default backoff parameters (1s doubling to a
// 64s cap). httpClient carries its own retry layer for retryable HTTP
// statuses (rate limiting and some 5xx); the Loop's own backoff
// handles exhausted retries and the malformed-tool-call repair ladder
// on top of that.
func New(httpClient *httpclient.Client, endpoint, apiKey string, cs *cmdserver.Client, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		HTTPClient:  httpClient,
		Endpoint:    endpoint,
		APIKey:      apiKey,
		CmdServer:   cs,
		Logger:      logger,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		baseBackoff: time.Second,
		maxBackoff:  64 * time.Second,
	}
}

// Run executes the attempt loop of spec §4.7 and returns the
// agent-turn's result.
func (l *Loop) Run(ctx context.Context, req Request) (*Result, error) {
	workingCtx := append([]any{}, req.Context...)
	workingCtx = append(workingCtx, instructionTurn(req.Mode, req.Actions))
	ctxLen := len(req.Context)

	n := 0
	failures := 0
	for {
		body := l.buildBody(workingCtx, req)
		l.logPromptSize(body)
		raw, err := l.send(ctx, body)
		if err != nil {
			delay := l.backoffFor(failures)
			failures++
			l.Logger.Warn("agent request failed, retrying", "error", err, "backoff", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		result, err := l.CmdServer.HandleAgent(cmdserver.HandleAgentRequest{
			RawResponse:     raw,
			Context:         workingCtx,
			AllowedActions:  req.Actions,
			Module:          req.Module,
			DependencyGraph: req.DependencyGraph,
			ResponseType:    string(req.Mode),
		})
		if err != nil {
			return nil, fmt.Errorf("handle_agent: %w", err)
		}

		if !result.AgentError {
			finalCtx := append([]any{}, workingCtx[:ctxLen]...)
			finalCtx = append(finalCtx, result.NewContext...)
			answer := true
			if result.Answer != nil {
				answer = *result.Answer
			}
			dg := req.DependencyGraph
			if result.DependencyGraph != nil {
				dg = result.DependencyGraph
			}
			return &Result{Context: finalCtx, DependencyGraph: dg, Answer: answer}, nil
		}

		workingCtx = append(workingCtx, result.NewContext...)
		repair, escalate := repairMessage(n)
		if escalate {
			operatorMsg, err := l.escalate(raw)
			if err != nil {
				return nil, err
			}
			workingCtx = append(workingCtx, userTurn(operatorMsg))
		} else if repair != "" {
			workingCtx = append(workingCtx, userTurn(repair))
		}
		n++
	}
}

// logPromptSize emits a debug-level estimate of the outbound request's
// token count, lazily creating the counter for Model (or a generic
// fallback encoding if Model is unset).
func (l *Loop) logPromptSize(body map[string]any) {
	if l.Logger == nil || !l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if l.tokens == nil {
		model := l.Model
		if model == "" {
			model = "gpt-4o"
		}
		counter, err := utils.NewTokenCounter(model)
		if err != nil {
			return
		}
		l.tokens = counter
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	l.Logger.Debug("agent request size", "estimated_tokens", l.tokens.Count(string(payload)))
}

func (l *Loop) backoffFor(n int) time.Duration {
	d := l.baseBackoff
	for i := 0; i < n; i++ {
		d *= 2
		if d > l.maxBackoff {
			return l.maxBackoff
		}
	}
	return d
}

func (l *Loop) buildBody(ctxList []any, req Request) map[string]any {
	body := map[string]any{
		"contents": ctxList,
		"generationConfig": map[string]any{
			"temperature": 0.2,
		},
	}
	if req.Mode != ModeReply {
		body["tools"] = buildToolDecls(req.Actions)
	}
	return body
}

func buildToolDecls(actions []Action) []map[string]any {
	decls := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		decls = append(decls, map[string]any{"name": a.Name})
	}
	return decls
}

func instructionTurn(mode Mode, actions []Action) any {
	var text string
	switch mode {
	case ModeReply:
		text = "Respond in plain text. Do not call any function."
	default:
		names := make([]string, 0, len(actions))
		for _, a := range actions {
			names = append(names, a.Name)
		}
		text = fmt.Sprintf("Call one of the following functions: %v. Escape quotes and backslashes in any string arguments.", names)
	}
	return userTurn(text)
}

func userTurn(text string) any {
	return map[string]any{
		"role":  "user",
		"parts": []any{map[string]any{"text": text}},
	}
}

func (l *Loop) send(ctx context.Context, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.APIKey)
	}
	resp, err := l.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return decoded, nil
}

// repairMessage returns the graduated repair prompt for attempt n, and
// whether n has exceeded MaxReplyAttempts and must escalate instead.
func repairMessage(n int) (message string, escalate bool) {
	switch {
	case n == MaxReplyAttempts-4:
		return "What's wrong? Why are you having such a hard time calling this function?", false
	case n == MaxReplyAttempts-3:
		return "Can you explain to me what's going wrong?", false
	case n == MaxReplyAttempts-2:
		return "Explain step-by-step, in plain text, exactly what you are trying to do and why the function call is failing.", false
	case n == MaxReplyAttempts-1:
		return "Now try one more time to call the function as requested earlier, following your own explanation.", false
	case n > MaxReplyAttempts:
		return "", true
	default:
		return "", false
	}
}

// escalate prints the raw malformed response and reads an
// operator-supplied repair message from standard input, the terminating
// pressure valve of the repair ladder.
func (l *Loop) escalate(raw map[string]any) (string, error) {
	pretty, _ := json.MarshalIndent(raw, "", "  ")
	fmt.Fprintf(l.Stdout, "Agent is stuck. Raw response:\n%s\nEnter a repair message: ", pretty)
	scanner := bufio.NewScanner(l.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return scanner.Text(), nil
}
