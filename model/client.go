package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"screensolver/capture"
	"screensolver/shared"
)

// ChatCompleter is the slice of the OpenAI client the workflow needs.
// *openai.Client satisfies it; tests substitute a fake transport.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client extracts, solves, and debugs problems against an OpenAI-compatible
// backend. All network calls go through the retry policy; JSON parsing never does.
type Client struct {
	api   ChatCompleter
	model string
	retry RetryPolicy
}

func NewClient(cfg shared.Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: cfg.Model,
		retry: DefaultRetryPolicy(),
	}
}

// NewClientWith wires an explicit transport and retry policy.
func NewClientWith(api ChatCompleter, modelName string, retry RetryPolicy) *Client {
	return &Client{api: api, model: modelName, retry: retry}
}

func (c *Client) chat(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	var content string
	err := c.retry.Do(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return classifyTransport(err)
		}
		if len(resp.Choices) == 0 {
			return shared.NewMalformedResponse("model returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}

// mediaMessage builds a user message carrying the instruction text plus every
// capture as an image part.
func mediaMessage(text string, contexts []capture.Context) (openai.ChatCompletionMessage, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: text},
	}
	for _, c := range contexts {
		uri, err := dataURI(c)
		if err != nil {
			return openai.ChatCompletionMessage{}, err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    uri,
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}, nil
}

func dataURI(c capture.Context) (string, error) {
	if c.Preview != "" {
		return c.Preview, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return "", fmt.Errorf("read capture %s: %w", c.ID, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Extract classifies the captured problem. The raw response goes through JSON
// recovery so markdown fences and surrounding prose do not break parsing.
func (c *Client) Extract(ctx context.Context, contexts []capture.Context) (ProblemInfo, error) {
	userMsg, err := mediaMessage(extractUserPrompt, contexts)
	if err != nil {
		return ProblemInfo{}, err
	}
	raw, err := c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
		userMsg,
	})
	if err != nil {
		return ProblemInfo{}, err
	}
	data, err := RecoverJSON(raw)
	if err != nil {
		return ProblemInfo{}, err
	}
	var problem ProblemInfo
	if err := json.Unmarshal(data, &problem); err != nil {
		return ProblemInfo{}, asMalformed(err)
	}
	log.Info().Str("type", string(problem.Type)).Msg("problem extracted")
	return problem, nil
}

// Solve generates a solution shaped by the problem type. Parse failures are
// surfaced, not retried: a reasoning error is not a transient one.
func (c *Client) Solve(ctx context.Context, problem ProblemInfo) (SolutionInfo, error) {
	system, user := solvePrompt(problem)
	raw, err := c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	})
	if err != nil {
		return SolutionInfo{}, err
	}
	data, err := RecoverJSON(raw)
	if err != nil {
		return SolutionInfo{}, err
	}
	return ParseSolution(problem.Type, data)
}

// Debug runs two stages. Stage one asks for a free-text root-cause analysis
// (no JSON, so format drift cannot sink it); stage two feeds the analysis back
// and asks for a corrected solution in the standard shape. A blank analysis
// fails fast with AnalysisEmpty before stage two spends a call.
func (c *Client) Debug(ctx context.Context, problem ProblemInfo, currentAnswer string, contexts []capture.Context) (SolutionInfo, error) {
	userMsg, err := mediaMessage(debugAnalysisPrompt(problem, currentAnswer), contexts)
	if err != nil {
		return SolutionInfo{}, err
	}
	analysis, err := c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: debugAnalysisSystemPrompt},
		userMsg,
	})
	if err != nil {
		return SolutionInfo{}, err
	}
	if strings.TrimSpace(analysis) == "" {
		return SolutionInfo{}, shared.NewAnalysisEmpty()
	}
	log.Debug().Int("analysis_chars", len(analysis)).Msg("debug analysis obtained")

	system, user := debugFixPrompt(problem, currentAnswer, analysis)
	raw, err := c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	})
	if err != nil {
		return SolutionInfo{}, err
	}
	data, err := RecoverJSON(raw)
	if err != nil {
		return SolutionInfo{}, err
	}
	solution, err := ParseSolution(problem.Type, data)
	if err != nil {
		return SolutionInfo{}, err
	}
	solution.Debugged = true
	return solution, nil
}

// asMalformed keeps already-typed errors and wraps everything else as a
// malformed response.
func asMalformed(err error) error {
	var typed *shared.Error
	if errors.As(err, &typed) {
		return err
	}
	return shared.NewMalformedResponse(err.Error())
}
