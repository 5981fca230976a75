package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/inference-gateway/sdk"
	"go.uber.org/zap"

	config "github.com/schedbot/schedbot/config"
	session "github.com/schedbot/schedbot/session"
	tools "github.com/schedbot/schedbot/tools"
)

// GatewayPlanner plans turns by calling a model through the Inference Gateway
type GatewayPlanner struct {
	client   sdk.Client
	logger   *zap.Logger
	provider sdk.Provider
	model    string
}

// NewGatewayPlanner creates a planner from the LLM configuration
func NewGatewayPlanner(cfg config.LLMConfig, logger *zap.Logger) (*GatewayPlanner, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("llm planning is disabled")
	}

	client := sdk.NewClient(&sdk.ClientOptions{
		BaseURL: cfg.GatewayURL,
		Timeout: cfg.Timeout,
		Tools:   buildPlannerTools(),
	})

	logger.Info("initialized llm planner",
		zap.String("component", "llm"),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("gateway_url", cfg.GatewayURL))

	return &GatewayPlanner{
		client:   client,
		logger:   logger,
		provider: sdk.Provider(cfg.Provider),
		model:    cfg.Model,
	}, nil
}

// Plan sends the conversation to the model and maps its answer onto a Decision
func (p *GatewayPlanner) Plan(ctx context.Context, req Request) (*Decision, error) {
	messages := make([]sdk.Message, 0, len(req.History)+2)
	messages = append(messages, sdk.Message{
		Role:    sdk.System,
		Content: buildSystemPrompt(req.Now, req.Timezone),
	})
	for _, msg := range req.History {
		role := sdk.User
		if msg.Role == session.RoleAssistant {
			role = sdk.Assistant
		}
		messages = append(messages, sdk.Message{Role: role, Content: msg.Text})
	}
	messages = append(messages, sdk.Message{Role: sdk.User, Content: req.UserText})

	started := time.Now()
	response, err := p.client.WithTools(buildPlannerTools()).GenerateContent(ctx, p.provider, p.model, messages)
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from model")
	}

	decision, err := parseDecision(response)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("planned turn",
		zap.String("component", "llm"),
		zap.String("kind", string(decision.Kind)),
		zap.Int("tool_calls", len(decision.Calls)),
		zap.Duration("elapsed", time.Since(started)))

	return decision, nil
}

func buildSystemPrompt(now time.Time, timezone string) string {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}
	localNow := now.In(loc)

	return fmt.Sprintf(`You are a calendar assistant. You manage the user's calendar through the provided tools.

Current date and time information:
- Current date: %s (%s)
- Current time: %s
- Timezone: %s

Guidelines:
- Use the current date/time above as reference for relative time calculations
- All times in tool arguments must be RFC3339 timestamps in the user's timezone (%s)
- Never invent event IDs. To modify or delete an event whose ID you do not know, pass a query instead
- If a request is ambiguous about which event or what time is meant, ask for clarification rather than guessing
- Answer plain questions directly without calling tools`,
		localNow.Format("2006-01-02"), localNow.Weekday(), localNow.Format("15:04:05"), timezone, timezone)
}

// parseDecision maps the model response onto the closed decision set. Every
// returned tool call is kept in order; unknown tool names fail the turn
// rather than being silently dropped.
func parseDecision(response *sdk.CreateChatCompletionResponse) (*Decision, error) {
	choice := response.Choices[0]

	if choice.Message.ToolCalls != nil && len(*choice.Message.ToolCalls) > 0 {
		calls := make([]tools.Call, 0, len(*choice.Message.ToolCalls))
		for _, tc := range *choice.Message.ToolCalls {
			if !knownTool(tc.Function.Name) {
				return nil, fmt.Errorf("model requested unknown tool %q", tc.Function.Name)
			}
			args := make(map[string]any)
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return nil, fmt.Errorf("malformed arguments for %s: %w", tc.Function.Name, err)
				}
			}
			calls = append(calls, tools.Call{Name: tc.Function.Name, Arguments: args})
		}
		return &Decision{Kind: DecisionToolCalls, Calls: calls}, nil
	}

	content := choice.Message.Content
	if looksLikeClarification(content) {
		return &Decision{Kind: DecisionClarify, Text: content}, nil
	}
	return &Decision{Kind: DecisionReply, Text: content}, nil
}

func knownTool(name string) bool {
	switch name {
	case tools.ToolCreateEvent, tools.ToolSearchEvents, tools.ToolUpdateEvent,
		tools.ToolDeleteEvent, tools.ToolResolveTime:
		return true
	}
	return false
}

func looksLikeClarification(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range []string{"?", "which", "what time", "when exactly", "could you", "please provide", "clarify", "specify"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// buildPlannerTools converts the toolbox declarations to the SDK tool format
func buildPlannerTools() *[]sdk.ChatCompletionTool {
	decls := tools.Declarations()
	out := make([]sdk.ChatCompletionTool, 0, len(decls))
	for _, d := range decls {
		params := sdk.FunctionParameters(d.Parameters)
		description := d.Description
		out = append(out, sdk.ChatCompletionTool{
			Type: sdk.Function,
			Function: sdk.FunctionObject{
				Name:        d.Name,
				Description: &description,
				Parameters:  &params,
			},
		})
	}
	return &out
}
