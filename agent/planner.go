package agent

import (
	"context"
	"regexp"
	"strings"
	"time"

	zap "go.uber.org/zap"

	llm "github.com/schedbot/schedbot/llm"
	timeparse "github.com/schedbot/schedbot/timeparse"
	tools "github.com/schedbot/schedbot/tools"
)

// RulePlanner is the deterministic fallback when no language model is
// configured. It classifies requests by keyword and extracts arguments with
// the time resolver. Anything it cannot classify becomes a help reply.
type RulePlanner struct {
	logger *zap.Logger
}

// NewRulePlanner creates the keyword fallback planner
func NewRulePlanner(logger *zap.Logger) *RulePlanner {
	return &RulePlanner{logger: logger}
}

var (
	deleteKeywords = []string{"delete", "cancel", "remove", "drop"}
	updateKeywords = []string{"reschedule", "move", "change", "update", "modify", "edit"}
	createKeywords = []string{
		"schedule a", "schedule an", "schedule meeting", "schedule appointment",
		"create a", "create an", "add a", "add an", "book a", "book an", "set up a",
	}
	listKeywords = []string{
		"show my", "list my", "what's on", "whats on", "view my", "see my",
		"my events", "my meetings", "my calendar", "my appointments",
		"show me", "what do i have", "free", "agenda", "summary",
	}
)

// Plan classifies the request and builds the corresponding tool calls
func (p *RulePlanner) Plan(_ context.Context, req llm.Request) (*llm.Decision, error) {
	text := strings.ToLower(strings.TrimSpace(req.UserText))
	loc := locationFor(req.Timezone)
	now := req.Now.In(loc)

	var decision *llm.Decision
	switch {
	case text == "":
		decision = clarify("What would you like me to do with your calendar?")
	case containsAny(text, updateKeywords):
		decision = p.planUpdate(text, now, loc)
	case containsAny(text, deleteKeywords):
		decision = p.planDelete(text)
	case containsAny(text, createKeywords):
		decision = p.planCreate(text, now, loc)
	case containsAny(text, listKeywords):
		decision = p.planList(text, now, loc)
	default:
		decision = &llm.Decision{
			Kind: llm.DecisionReply,
			Text: "I can help you manage your calendar. Try things like:\n" +
				"1. show my events tomorrow\n" +
				"2. schedule a meeting with John tomorrow at 2pm\n" +
				"3. move my dentist appointment to 4pm\n" +
				"4. cancel my standup on friday",
		}
	}

	p.logger.Debug("planned turn without model",
		zap.String("component", "rule-planner"),
		zap.String("kind", string(decision.Kind)))
	return decision, nil
}

func (p *RulePlanner) planList(text string, now time.Time, loc *time.Location) *llm.Decision {
	phrase := extractTimePhrase(text)
	if phrase == "" {
		phrase = "today"
	}
	r, err := timeparse.ResolveRange(phrase, now, loc)
	if err != nil {
		r, _ = timeparse.ResolveRange("today", now, loc)
	}

	args := map[string]any{
		"time_min": r.Start.Format(time.RFC3339),
		"time_max": r.End.Format(time.RFC3339),
	}
	if q := extractTopic(text, phrase, listKeywords); q != "" {
		args["query"] = q
	}
	return toolCalls(tools.Call{Name: tools.ToolSearchEvents, Arguments: args})
}

func (p *RulePlanner) planCreate(text string, now time.Time, loc *time.Location) *llm.Decision {
	phrase := extractTimePhrase(text)
	if phrase == "" {
		return clarify("When should I schedule that?")
	}
	start, err := timeparse.ResolveInstant(phrase, now, loc)
	if err != nil {
		return clarify("When exactly? I need a date and a time, like 'tomorrow at 2pm'.")
	}

	summary := extractTopic(text, phrase, createKeywords)
	if summary == "" {
		return clarify("What should I call the event?")
	}

	return toolCalls(tools.Call{
		Name: tools.ToolCreateEvent,
		Arguments: map[string]any{
			"summary":    summary,
			"start_time": start.Format(time.RFC3339),
			"end_time":   start.Add(time.Hour).Format(time.RFC3339),
		},
	})
}

func (p *RulePlanner) planUpdate(text string, now time.Time, loc *time.Location) *llm.Decision {
	phrase := extractTimePhrase(text)
	query := extractTopic(text, phrase, updateKeywords)
	if query == "" {
		return clarify("Which event should I change?")
	}

	args := map[string]any{"query": query}
	if phrase != "" {
		if start, err := timeparse.ResolveInstant(phrase, now, loc); err == nil {
			args["start_time"] = start.Format(time.RFC3339)
			args["end_time"] = start.Add(time.Hour).Format(time.RFC3339)
		}
	}
	if len(args) == 1 {
		return clarify("What should I change about it?")
	}
	return toolCalls(tools.Call{Name: tools.ToolUpdateEvent, Arguments: args})
}

func (p *RulePlanner) planDelete(text string) *llm.Decision {
	query := extractTopic(text, extractTimePhrase(text), deleteKeywords)
	if query == "" {
		return clarify("Which event should I cancel?")
	}
	return toolCalls(tools.Call{
		Name:      tools.ToolDeleteEvent,
		Arguments: map[string]any{"query": query},
	})
}

func toolCalls(calls ...tools.Call) *llm.Decision {
	return &llm.Decision{Kind: llm.DecisionToolCalls, Calls: calls}
}

func clarify(question string) *llm.Decision {
	return &llm.Decision{Kind: llm.DecisionClarify, Text: question}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func locationFor(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// anchorWords mark where the temporal part of an utterance begins
var anchorWords = map[string]bool{
	"tomorrow": true, "today": true, "tonight": true, "yesterday": true,
	"noon": true, "midnight": true, "morning": true, "afternoon": true, "evening": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// periodWords follow "next" or "this" to form a time phrase
var periodWords = map[string]bool{"week": true, "month": true, "weekend": true}

var clockAnchorRe = regexp.MustCompile(`^\d{1,2}(:\d{2})?(am|pm)?$`)

// extractTimePhrase returns the suffix of the text starting at its first
// time anchor word, which is how people phrase calendar requests ("lunch
// with sam tomorrow at noon")
func extractTimePhrase(text string) string {
	words := strings.Fields(text)
	for i, raw := range words {
		w := strings.Trim(raw, ".,!?")
		switch {
		case anchorWords[w]:
			return strings.Join(words[i:], " ")
		case clockAnchorRe.MatchString(w) && strings.ContainsAny(w, "apm:"):
			return strings.Join(words[i:], " ")
		case clockAnchorRe.MatchString(w) && i+1 < len(words) &&
			(strings.Trim(words[i+1], ".,!?") == "am" || strings.Trim(words[i+1], ".,!?") == "pm"):
			return strings.Join(words[i:], " ")
		case (w == "at" || w == "in") && i+1 < len(words):
			return strings.Join(words[i:], " ")
		case (w == "next" || w == "this") && i+1 < len(words):
			next := strings.Trim(words[i+1], ".,!?")
			if periodWords[next] || anchorWords[next] {
				return strings.Join(words[i:], " ")
			}
		}
	}
	return ""
}

// fillerWords are stripped from the edges of an extracted topic
var fillerWords = map[string]bool{
	"my": true, "the": true, "a": true, "an": true, "to": true, "on": true,
	"for": true, "with": true, "please": true, "event": true, "events": true,
	"appointment": true, "meeting": true, "do": true, "i": true, "have": true,
}

// extractTopic removes the matched keyword, the time phrase and filler to
// leave the words naming the event
func extractTopic(text, timePhrase string, keywords []string) string {
	s := text
	if timePhrase != "" {
		s = strings.Replace(s, timePhrase, "", 1)
	}
	for _, k := range keywords {
		s = strings.Replace(s, k, "", 1)
	}

	words := strings.Fields(s)
	start, end := 0, len(words)
	for start < end && fillerWords[words[start]] {
		start++
	}
	for end > start && fillerWords[words[end-1]] {
		end--
	}
	return strings.Join(words[start:end], " ")
}
