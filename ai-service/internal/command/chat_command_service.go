package command

import (
	"context"
	"strings"
	"time"

	"github.com/pennywise/finance/ai-service/internal/llm"
	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

const defaultSessionTitle = "New conversation"

type ChatCommandService struct {
	sessions     SessionStore
	spend        SpendReader
	model        llm.Model
	historyLimit int
	now          func() time.Time
}

func NewChatCommandService(sessions SessionStore, spend SpendReader, model llm.Model, historyLimit int) *ChatCommandService {
	return &ChatCommandService{
		sessions:     sessions,
		spend:        spend,
		model:        model,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func (s *ChatCommandService) CreateSession(ctx context.Context, cmd cqrs.CreateSessionCommand) (*models.AiSession, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = defaultSessionTitle
	}
	now := s.now().UTC()
	session := &models.AiSession{
		ID:        utils.GenerateID(utils.PrefixSession),
		UserID:    cmd.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("session_id", session.ID).Msg("chat session created")
	return session, nil
}

func (s *ChatCommandService) DeleteSession(ctx context.Context, cmd cqrs.DeleteSessionCommand) error {
	if _, err := s.ownedSession(ctx, cmd.SessionID, cmd.RequestingUserID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, cmd.SessionID)
}

// SendMessage asks the model for a reply to content, with the session's recent
// history and the user's current month totals as context. Nothing is stored
// unless the model answers.
func (s *ChatCommandService) SendMessage(ctx context.Context, cmd cqrs.SendMessageCommand) (*models.AiMessage, error) {
	session, err := s.ownedSession(ctx, cmd.SessionID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.Messages(ctx, session.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	spend, err := s.spend.Month(ctx, session.UserID, now)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("spend totals unavailable for chat")
		spend = nil
	}

	conversation := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		conversation = append(conversation, llm.Message{Role: m.Role, Content: m.Content})
	}
	conversation = append(conversation, llm.Message{Role: models.MessageRoleUser, Content: cmd.Content})

	reply, err := s.model.Generate(ctx, chatSystem(monthOf(now), spend), conversation)
	if err != nil {
		return nil, err
	}

	question := models.AiMessage{
		ID:        utils.GenerateID(utils.PrefixMessage),
		SessionID: session.ID,
		Role:      models.MessageRoleUser,
		Content:   cmd.Content,
		CreatedAt: now,
	}
	answer := models.AiMessage{
		ID:        utils.GenerateID(utils.PrefixMessage),
		SessionID: session.ID,
		Role:      models.MessageRoleAssistant,
		Content:   reply,
		CreatedAt: s.now().UTC(),
	}
	if !answer.CreatedAt.After(question.CreatedAt) {
		answer.CreatedAt = question.CreatedAt.Add(time.Microsecond)
	}
	if err := s.sessions.AddMessages(ctx, session.ID, question, answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *ChatCommandService) ownedSession(ctx context.Context, sessionID, userID string) (*models.AiSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, errs.ErrForbidden
	}
	return session, nil
}
