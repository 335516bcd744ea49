package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/completion"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// ManagerConfig wires the collaborators shared by every session.
type ManagerConfig struct {
	Client     completion.Client
	Gate       *intent.Gate
	Options    Options
	Transcript TranscriptStore
	Bus        events.Bus
	Metrics    *metrics.ChatMetrics
	Logger     *logging.Logger

	// SystemPrompt overrides the catalog-derived prompt.
	SystemPrompt string
	// PickGreeting chooses the welcome variant; nil picks at random.
	PickGreeting func(n int) int
	Now          func() time.Time
}

// Manager keeps one Session per user. Sessions never share a log.
type Manager struct {
	cfg ManagerConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager fills in defaults for anything left unset.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Client == nil {
		cfg.Client = completion.NotConfigured{}
	}
	if cfg.Gate == nil {
		cfg.Gate = intent.NewGate(nil)
	}
	if cfg.Options.HistoryWindow <= 0 {
		cfg.Options.HistoryWindow = DefaultOptions().HistoryWindow
	}
	if cfg.Options.MaxTokens <= 0 {
		cfg.Options.MaxTokens = DefaultOptions().MaxTokens
	}
	if cfg.Options.Temperature == 0 {
		cfg.Options.Temperature = DefaultOptions().Temperature
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = completion.SystemPrompt()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open starts a fresh chat for userID seeded with a greeting. Any previous
// session for the user is replaced; history is not carried across opens.
func (m *Manager) Open(ctx context.Context, userID, name string) *Session {
	conversationID := chat.SupportConversationID(userID)
	greeting := chat.Message{
		ID:             chat.NewLocalID("welcome"),
		ConversationID: conversationID,
		Role:           chat.RoleAssistant,
		Text:           chat.Greeting(chat.FirstName(name), m.cfg.PickGreeting),
		Kind:           chat.KindGreeting,
		CreatedAt:      m.cfg.Now(),
	}

	s := &Session{
		userID:         userID,
		conversationID: conversationID,
		log:            chat.NewLog(greeting),
		client:         m.cfg.Client,
		gate:           m.cfg.Gate,
		opts:           m.cfg.Options,
		system:         m.cfg.SystemPrompt,
		transcript:     m.cfg.Transcript,
		bus:            m.cfg.Bus,
		metrics:        m.cfg.Metrics,
		logger:         m.cfg.Logger.WithConversation(conversationID),
		now:            m.cfg.Now,
		state:          StateIdle,
	}

	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()

	s.record(ctx, greeting)
	s.logger.Info("support chat opened")
	return s
}

// Get returns the open session for userID.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close forgets the session for userID.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Len reports how many sessions are open.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
