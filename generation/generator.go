/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chainguard.dev/fixengine/generation/retry"
	"chainguard.dev/fixengine/workspace"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	defaultMaxTokens       = 4096
	defaultMaxTurns        = 30
	defaultMaxOutputTokens = 32768
)

// GenerationError reports a model API failure during a generation round.
type GenerationError struct {
	Turn int
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed on turn %d: %v", e.Turn, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result is the outcome of one generation round. Whether the round produced
// usable changes is judged by the State, not by the Result.
type Result struct {
	// Summary is the model's final text, normally a description of the
	// changes it made.
	Summary string

	// InputTokens and OutputTokens total the usage across every turn of
	// the round.
	InputTokens  int64
	OutputTokens int64
}

// Generator drives tool-augmented fix generation against the Messages API.
type Generator struct {
	client          anthropic.Client
	model           anthropic.Model
	maxTokens       int64
	maxTurns        int
	maxOutputTokens int64
	retryConfig     retry.Config
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) Option {
	return func(g *Generator) { g.model = model }
}

// WithMaxTokens sets the per-response token budget.
func WithMaxTokens(n int64) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// WithMaxTurns caps the number of model turns in one round.
func WithMaxTurns(n int) Option {
	return func(g *Generator) { g.maxTurns = n }
}

// WithMaxOutputTokens caps the cumulative output tokens in one round.
func WithMaxOutputTokens(n int64) Option {
	return func(g *Generator) { g.maxOutputTokens = n }
}

// WithRetryConfig overrides the retry behavior for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(g *Generator) { g.retryConfig = cfg }
}

// New constructs a Generator with conservative defaults.
func New(client anthropic.Client, opts ...Option) *Generator {
	g := &Generator{
		client:          client,
		model:           anthropic.ModelClaudeSonnet4_20250514,
		maxTokens:       defaultMaxTokens,
		maxTurns:        defaultMaxTurns,
		maxOutputTokens: defaultMaxOutputTokens,
		retryConfig:     retry.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one round of the tool-use conversation. The prompt carries
// either the initial bug context or gate feedback from the previous round;
// changes accumulate in state as the model calls write_file. maxTokens caps
// each response in this round; zero or negative falls back to the
// Generator's default.
//
// The round ends on the model's first response without tool calls, or when
// the turn or output-token ceiling is hit. Ceilings are not errors: the
// caller judges the round by what got staged.
func (g *Generator) Generate(ctx context.Context, ws *workspace.Workspace, state *State, prompt string, maxTokens int64) (*Result, error) {
	log := clog.FromContext(ctx)

	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	tools := Tools(ws, state)
	toolDefs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		def := tool.Definition
		toolDefs = append(toolDefs, anthropic.ToolUnionParam{OfTool: &def})
	}

	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: maxTokens,
		Tools:     toolDefs,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(prompt),
			},
		}},
	}

	result := &Result{}
	for turn := 1; ; turn++ {
		if turn > g.maxTurns {
			log.With("turns", g.maxTurns).Warn("Generation hit the turn ceiling")
			return result, nil
		}

		message, err := retry.Do(ctx, g.retryConfig, "stream_message", isRetryableAPIError, func() (anthropic.Message, error) {
			stream := g.client.Messages.NewStreaming(ctx, params)
			var msg anthropic.Message
			for stream.Next() {
				if err := msg.Accumulate(stream.Current()); err != nil {
					return msg, fmt.Errorf("accumulating event: %w", err)
				}
			}
			if err := stream.Err(); err != nil {
				return msg, err
			}
			return msg, nil
		})
		if err != nil {
			return nil, &GenerationError{Turn: turn, Err: err}
		}

		result.InputTokens += message.Usage.InputTokens
		result.OutputTokens += message.Usage.OutputTokens

		var toolUses []anthropic.ToolUseBlock
		var text string
		for _, content := range message.Content {
			switch content.Type {
			case "text":
				text = content.Text
			case "tool_use":
				toolUses = append(toolUses, anthropic.ToolUseBlock{
					ID:    content.ID,
					Name:  content.Name,
					Input: content.Input,
				})
			}
		}

		if len(toolUses) == 0 {
			result.Summary = text
			return result, nil
		}

		params.Messages = append(params.Messages, message.ToParam())

		toolResults := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, toolUse := range toolUses {
			block, err := g.dispatch(ctx, tools, toolUse)
			if err != nil {
				return nil, &GenerationError{Turn: turn, Err: err}
			}
			toolResults = append(toolResults, block)
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRoleUser,
			Content: toolResults,
		})

		if result.OutputTokens >= g.maxOutputTokens {
			log.With("output_tokens", result.OutputTokens).Warn("Generation hit the output token ceiling")
			return result, nil
		}
	}
}

// dispatch runs one tool call and wraps its result map for the conversation.
// Handler-level failures travel back to the model inside the result; only a
// marshaling problem is a Go error.
func (g *Generator) dispatch(ctx context.Context, tools map[string]Tool, toolUse anthropic.ToolUseBlock) (anthropic.ContentBlockParamUnion, error) {
	log := clog.FromContext(ctx)
	log.With("tool", toolUse.Name).With("id", toolUse.ID).Info("Executing tool call")

	var result map[string]any
	if tool, ok := tools[toolUse.Name]; ok {
		var args map[string]any
		if err := json.Unmarshal(toolUse.Input, &args); err != nil {
			result = map[string]any{"error": fmt.Sprintf("failed to parse tool input: %v", err)}
		} else {
			result = tool.Handler(ctx, args)
		}
	} else {
		log.With("tool", toolUse.Name).Error("Unknown tool requested")
		result = map[string]any{"error": fmt.Sprintf("unknown tool: %q", toolUse.Name)}
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("marshaling tool result: %w", err)
	}

	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{
			ToolUseID: toolUse.ID,
			Content: []anthropic.ToolResultBlockParamContentUnion{{
				OfText: &anthropic.TextBlockParam{Text: string(resultBytes)},
			}},
		},
	}, nil
}

// isRetryableAPIError reports whether an API failure is transient: rate
// limits, overload, and gateway timeouts.
func isRetryableAPIError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
