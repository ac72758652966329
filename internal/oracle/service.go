package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"interviewgo/internal/config"
	"interviewgo/internal/interview"
	"interviewgo/internal/models"
)

// Service is the completion oracle: it turns the interview transcript into
// the next interviewer message via a configured chat model.
type Service struct {
	chatModel   model.BaseChatModel
	maxTokens   int
	temperature *float32
}

// NewService builds the chat model for the provider selected in config.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	provider := cfg.Interview.Provider
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	modelName := cfg.Interview.Model
	if modelName == "" {
		modelName = provCfg.Model
	}

	var chatModel model.BaseChatModel
	var err error
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: cfg.Interview.MaxOutputTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", provider, err)
	}

	return &Service{
		chatModel:   chatModel,
		maxTokens:   cfg.Interview.MaxOutputTokens,
		temperature: cfg.Interview.Temperature,
	}, nil
}

// Open produces the opening interviewer message with a single blocking call.
func (s *Service) Open(ctx context.Context, turns []models.Turn) (string, error) {
	resp, err := s.chatModel.Generate(ctx, convertTurns(turns), s.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("generate opening message: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", errors.New("empty completion")
	}
	return resp.Content, nil
}

// Continue starts a streamed completion over the full turn sequence and
// returns a pull-based fragment stream.
func (s *Service) Continue(ctx context.Context, turns []models.Turn) (interview.Stream, error) {
	reader, err := s.chatModel.Stream(ctx, convertTurns(turns), s.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("start completion stream: %w", err)
	}
	return &tokenStream{reader: reader}, nil
}

func (s *Service) callOptions() []model.Option {
	opts := []model.Option{model.WithMaxTokens(s.maxTokens)}
	if s.temperature != nil {
		opts = append(opts, model.WithTemperature(*s.temperature))
	}
	return opts
}

// tokenStream adapts the eino stream reader to the engine's fragment stream.
// Recv returns io.EOF when the underlying stream finishes normally.
type tokenStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (t *tokenStream) Recv() (string, error) {
	for {
		chunk, err := t.reader.Recv()
		if err != nil {
			return "", err
		}
		if chunk.Content == "" {
			continue
		}
		return chunk.Content, nil
	}
}

func (t *tokenStream) Close() {
	t.reader.Close()
}

func convertTurns(turns []models.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		var role schema.RoleType
		switch t.Role {
		case models.RoleSystem:
			role = schema.System
		case models.RoleInterviewer:
			role = schema.Assistant
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: t.Content})
	}
	return messages
}
