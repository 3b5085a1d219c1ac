package nlu

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
	promptx "github.com/calplan/calplan/agent/prompt"
	statex "github.com/calplan/calplan/agent/state"
)

const historyWindow = 6

var intentCategories = []contractx.Intent{
	contractx.IntentNewRequest,
	contractx.IntentConfirmation,
	contractx.IntentDenial,
	contractx.IntentModification,
	contractx.IntentGeneral,
}

// Provider is the hybrid understanding layer: deterministic rules first,
// model calls when the rules cannot decide, rules again when the model
// misbehaves. Its methods never return errors; a turn always gets an
// answer, just possibly a dumber one.
type Provider struct {
	extractor  compose.Runnable[map[string]any, extractorOutput]
	classifier compose.Runnable[map[string]any, *schema.Message]
	responder  compose.Runnable[map[string]any, *schema.Message]

	raw     *openaisdk.Client
	model   string
	prompts promptx.PromptSet
	now     func() time.Time
}

var _ contractx.NLUProvider = (*Provider)(nil)

type Option func(*Provider)

// WithClock overrides the time source used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New builds a Provider. chatModel and raw may both be nil, leaving a
// rules-only provider. A non-nil chatModel that fails graph compilation is
// an error; a half-working model layer is worse than none.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, raw *openaisdk.Client, modelName string, opts ...Option) (*Provider, error) {
	p := &Provider{
		raw:     raw,
		model:   strings.TrimSpace(modelName),
		prompts: promptx.LoadPromptSet(),
		now:     time.Now,
	}

	if chatModel != nil {
		extractor, err := compileExtractorGraph(ctx, chatModel, p.prompts.Extractor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		classifier, err := compileTextGraph(ctx, chatModel, p.prompts.Classifier, "nlu.classifier_graph")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		responder, err := compileTextGraph(ctx, chatModel, p.prompts.Responder, "nlu.responder_graph")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		p.extractor = extractor
		p.classifier = classifier
		p.responder = responder
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Classify determines the user's intent for this turn. Rules decide the
// common cases; the model breaks ties; IntentGeneral is the floor.
func (p *Provider) Classify(ctx context.Context, message string, phase statex.Phase) contractx.Intent {
	if intent, decided := classifyRules(message, phase); decided {
		return intent
	}

	raw := p.generate(ctx, p.classifier, p.prompts.Classifier,
		fmt.Sprintf("Status: %s\nMessage: %q\nReply with ONLY the category name.", phase, message))
	lower := strings.ToLower(raw)
	for _, cat := range intentCategories {
		if strings.Contains(lower, string(cat)) {
			return cat
		}
	}

	return contractx.IntentGeneral
}

// Extract pulls meeting details from the message. The model result wins
// field by field; the regex pass fills whatever it missed.
func (p *Provider) Extract(ctx context.Context, message string, history []statex.Message) statex.SlotPatch {
	modelPatch := p.modelExtract(ctx, message, history)
	rulePatch := extractRules(message, p.now())
	return overlay(rulePatch, modelPatch)
}

// Respond asks the model for a conversational reply. Empty string means
// the caller should use its canned text.
func (p *Provider) Respond(ctx context.Context, phase statex.Phase, situation, slotSnapshot string) string {
	return p.generate(ctx, p.responder, p.prompts.Responder,
		fmt.Sprintf("Status: %s\nSituation: %s\nDetails: %s", phase, situation, slotSnapshot))
}

// generate runs one text graph and returns the trimmed content. A missing
// or failing graph falls through to the raw completion client, then to "".
func (p *Provider) generate(ctx context.Context, runner compose.Runnable[map[string]any, *schema.Message], system, user string) string {
	if runner != nil {
		msg, err := runner.Invoke(ctx, map[string]any{"input": user})
		if err == nil && msg != nil {
			return strings.TrimSpace(msg.Content)
		}
		if err != nil {
			log.Warn().Err(fmt.Errorf("%w: text graph invoke: %v", contractx.ErrModelInvoke, err)).
				Msg("text graph failed, trying raw completion")
		}
	}
	return p.complete(ctx, system, user)
}

func (p *Provider) modelExtract(ctx context.Context, message string, history []statex.Message) statex.SlotPatch {
	if p.extractor == nil {
		return statex.SlotPatch{}
	}

	now := p.now()
	out, err := p.extractor.Invoke(ctx, map[string]any{
		"input": fmt.Sprintf("Today: %s, Tomorrow: %s\nConversation:\n%s\nMessage: %q",
			now.Format("2006-01-02"),
			now.AddDate(0, 0, 1).Format("2006-01-02"),
			renderHistory(history),
			message),
	})
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)).
			Msg("model extraction failed, using rules only")
		return statex.SlotPatch{}
	}

	return normalizePatch(statex.SlotPatch{
		Title:        deref(out.Title),
		Date:         deref(out.Date),
		StartTime:    deref(out.StartTime),
		EndTime:      deref(out.EndTime),
		Timezone:     deref(out.Timezone),
		Participants: out.Participants,
		Description:  deref(out.Description),
	})
}

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// normalizePatch drops model fields that do not match the formats the rest
// of the pipeline assumes: dates are YYYY-MM-DD, times are HH:MM.
func normalizePatch(p statex.SlotPatch) statex.SlotPatch {
	if p.Date != "" {
		if _, err := time.Parse("2006-01-02", p.Date); err != nil {
			log.Warn().Err(fmt.Errorf("%w: date %q", contractx.ErrSchemaViolation, p.Date)).
				Msg("dropping malformed model date")
			p.Date = ""
		}
	}
	if p.StartTime != "" && !hhmmPattern.MatchString(p.StartTime) {
		log.Warn().Err(fmt.Errorf("%w: start_time %q", contractx.ErrSchemaViolation, p.StartTime)).
			Msg("dropping malformed model start time")
		p.StartTime = ""
	}
	if p.EndTime != "" && !hhmmPattern.MatchString(p.EndTime) {
		log.Warn().Err(fmt.Errorf("%w: end_time %q", contractx.ErrSchemaViolation, p.EndTime)).
			Msg("dropping malformed model end time")
		p.EndTime = ""
	}
	return p
}

// complete runs one chat completion and returns the trimmed content, or ""
// when no client is configured or the call fails.
func (p *Provider) complete(ctx context.Context, system, user string) string {
	if p.raw == nil {
		return ""
	}

	resp, err := p.raw.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(p.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		MaxTokens:   openaisdk.Int(512),
		Temperature: openaisdk.Float(0.1),
	})
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)).
			Msg("model completion failed")
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func renderHistory(history []statex.Message) string {
	if len(history) == 0 {
		return "(none)"
	}
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	var b strings.Builder
	for _, m := range history[start:] {
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// overlay lays top over base, keeping base values where top is empty.
func overlay(base, top statex.SlotPatch) statex.SlotPatch {
	out := base
	if top.Title != "" {
		out.Title = top.Title
	}
	if top.Date != "" {
		out.Date = top.Date
	}
	if top.StartTime != "" {
		out.StartTime = top.StartTime
	}
	if top.EndTime != "" {
		out.EndTime = top.EndTime
	}
	if top.Timezone != "" {
		out.Timezone = top.Timezone
	}
	if len(top.Participants) > 0 {
		out.Participants = top.Participants
	}
	if top.Description != "" {
		out.Description = top.Description
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
