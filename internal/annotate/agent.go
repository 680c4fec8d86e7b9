package annotate

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

const describePrompt = `Describe this video still for a medical animation library.
Reply with exactly two lines:
Description: <one sentence describing what is shown>
Tags: <three to six comma-separated keywords>`

// AgentAnnotator asks a local vision chat model to describe keyframes.
type AgentAnnotator struct {
	agent *agent.Agent
}

// NewAgentAnnotator wires up an Ollama-backed vision agent.
func NewAgentAnnotator(ctx context.Context, logger *slog.Logger, baseURL, chatModel string) (*AgentAnnotator, error) {
	host, port := splitHostPort(baseURL)
	lgr := logr.FromSlogHandler(logger.Handler())

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  &lgr,
		BaseURL: host,
		Port:    port,
	})
	if err := provider.UseModel(ctx, &core.Model{ID: chatModel}); err != nil {
		return nil, fmt.Errorf("select chat model %s: %w", chatModel, err)
	}

	a, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithLogger(&lgr),
		bootstrap.WithSystemPrompt("You are a medical animation librarian. You describe video stills tersely and accurately."),
	)
	if err != nil {
		return nil, fmt.Errorf("create annotation agent: %w", err)
	}
	return &AgentAnnotator{agent: a}, nil
}

// Describe sends one keyframe to the model.
func (a *AgentAnnotator) Describe(ctx context.Context, jpeg []byte) (Annotation, error) {
	encoded := base64.StdEncoding.EncodeToString(jpeg)
	response, err := a.agent.Run(ctx,
		agent.WithInput(describePrompt),
		agent.WithImageBase64(encoded, "image/jpeg"),
	)
	if err != nil {
		return Annotation{}, err
	}
	if response == nil || len(response.Messages) == 0 {
		return Annotation{}, fmt.Errorf("describe: no response from model")
	}
	return parseAnnotation(response.Messages[len(response.Messages)-1].Content)
}

// parseAnnotation pulls the Description/Tags lines out of the model
// reply, tolerating extra prose around them.
func parseAnnotation(content string) (Annotation, error) {
	var annotation Annotation
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := cutPrefixFold(line, "description:"); ok {
			annotation.Description = strings.TrimSpace(rest)
		} else if rest, ok := cutPrefixFold(line, "tags:"); ok {
			annotation.Tags = normalizeTags(rest)
		}
	}
	if annotation.Description == "" && annotation.Tags == "" {
		return Annotation{}, fmt.Errorf("describe: unparseable reply: %q", strings.TrimSpace(content))
	}
	return annotation, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func normalizeTags(raw string) string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			tags = append(tags, p)
		}
	}
	return strings.Join(tags, ", ")
}

func splitHostPort(baseURL string) (string, int) {
	host := strings.TrimSuffix(baseURL, "/")
	port := 11434
	if i := strings.LastIndex(host, ":"); i > len("https") {
		var parsed int
		if _, err := fmt.Sscanf(host[i+1:], "%d", &parsed); err == nil {
			port = parsed
			host = host[:i]
		}
	}
	return host, port
}
