package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"beautybot/internal/domain"
)

const defaultSystemPrompt = "You are a helpful and knowledgeable shopping assistant for a skincare and cosmetics store. " +
	"Answer the user's question based on the provided product information and your knowledge. " +
	"Be friendly, helpful, and knowledgeable about beauty and skincare. " +
	"If the provided product information isn't sufficient, use your general knowledge to answer."

const unavailableReply = "Sorry, I can't answer right now. Please try again later."

// Service assembles grounded prompts and tracks per-session conversation
// history. Retrieval and completion are both optional collaborators: without
// retrieval the bot answers from general knowledge, without a completer chat
// is disabled entirely.
type Service struct {
	searcher    domain.Searcher
	completer   domain.Completer
	systemBase  string
	topK        int
	maxMessages int
	log         *logrus.Entry

	mu       sync.Mutex
	sessions map[string][]domain.Message
}

// Options tune prompt assembly and history retention.
type Options struct {
	SystemPrompt string
	TopK         int
	MaxMessages  int
}

// New creates a chat service. completer may be nil, in which case every
// reply is a fixed apology.
func New(searcher domain.Searcher, completer domain.Completer, opts Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 20
	}
	return &Service{
		searcher:    searcher,
		completer:   completer,
		systemBase:  opts.SystemPrompt,
		topK:        opts.TopK,
		maxMessages: opts.MaxMessages,
		log:         logger.WithField("component", "chat"),
		sessions:    make(map[string][]domain.Message),
	}
}

// Reply answers message within the given session. An empty sessionID starts
// a new session; the effective session ID is always returned so the caller
// can continue the conversation.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (string, string) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if s.completer == nil {
		return sessionID, unavailableReply
	}

	contexts := s.searcher.Search(ctx, message, s.topK)
	system := s.systemPrompt(contexts)

	history := s.appendMessage(sessionID, domain.Message{Role: domain.RoleUser, Content: message})

	reply, err := s.completer.Complete(ctx, system, history)
	if err != nil {
		s.log.WithError(err).WithField("session", sessionID).Error("completion failed")
		return sessionID, unavailableReply
	}
	s.appendMessage(sessionID, domain.Message{Role: domain.RoleAssistant, Content: reply})
	return sessionID, reply
}

func (s *Service) systemPrompt(contexts []string) string {
	if len(contexts) == 0 {
		return s.systemBase
	}
	var sb strings.Builder
	sb.WriteString(s.systemBase)
	sb.WriteString("\n\nHere is some product information that might be relevant:\n\n")
	for i, context := range contexts {
		fmt.Fprintf(&sb, "--- Context %d ---\n%s\n\n", i+1, context)
	}
	return sb.String()
}

// appendMessage records a turn and returns the truncated history for the
// session.
func (s *Service) appendMessage(sessionID string, msg domain.Message) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[sessionID], msg)
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}
	s.sessions[sessionID] = history
	out := make([]domain.Message, len(history))
	copy(out, history)
	return out
}
