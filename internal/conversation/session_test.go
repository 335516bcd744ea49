package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/photka-support-ai/internal/chat"
	"github.com/wolfman30/photka-support-ai/internal/completion"
	"github.com/wolfman30/photka-support-ai/internal/events"
	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

type scriptedClient struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []completion.Request
}

func (c *scriptedClient) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return completion.Response{}, c.errs[i]
	}
	if i < len(c.replies) {
		return completion.Response{Text: c.replies[i]}, nil
	}
	return completion.Response{Text: "ok"}, nil
}

func (c *scriptedClient) lastRequest() completion.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type blockingClient struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingClient) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	close(c.started)
	<-c.release
	return completion.Response{Text: "done"}, nil
}

func firstGreeting(int) int { return 0 }

func newTestManager(client completion.Client) *Manager {
	return NewManager(ManagerConfig{Client: client, PickGreeting: firstGreeting})
}

func TestOpenSeedsGreeting(t *testing.T) {
	m := newTestManager(&scriptedClient{})
	s := m.Open(context.Background(), "user-1", "Ana Reyes")

	msgs := s.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.KindGreeting, msgs[0].Kind)
	assert.Equal(t, chat.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Hey Ana! What can I help you with today?", msgs[0].Text)
	assert.Equal(t, chat.SupportConversationID("user-1"), s.ConversationID())
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitAppendsReplyAndEvaluatesGate(t *testing.T) {
	client := &scriptedClient{replies: []string{"Perfect, an iPhone session works great for that."}}
	s := newTestManager(client).Open(context.Background(), "user-1", "Ana")

	turn, err := s.Submit(context.Background(), "  I want an iPhone session right now  ")
	require.NoError(t, err)

	assert.False(t, turn.Failed)
	assert.Equal(t, "I want an iPhone session right now", turn.User.Text)
	assert.Equal(t, chat.KindReply, turn.Reply.Kind)
	assert.True(t, turn.Decision.Show)
	assert.Equal(t, intent.ReasonImplicitConfirm, turn.Decision.Reason)
	require.Len(t, turn.Decision.Actions, 1)
	assert.Equal(t, intent.ActionBookNow, turn.Decision.Actions[0].Kind)
	assert.Equal(t, sessions.IPhone, turn.Decision.Session)

	msgs := s.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, turn.Reply.ID, msgs[2].ID)
	assert.Equal(t, StateIdle, s.State())

	req := client.lastRequest()
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0], "photka")
	assert.Equal(t, int32(400), req.MaxTokens)
	assert.InDelta(t, 0.85, req.Temperature, 0.0001)
	assert.Equal(t, []completion.Message{{Role: completion.RoleUser, Content: "I want an iPhone session right now"}}, req.Messages)
}

func TestSubmitRejectsEmptyMessage(t *testing.T) {
	client := &scriptedClient{}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	_, err := s.Submit(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, s.Snapshot(), 1)
	assert.Empty(t, client.requests)
}

func TestSubmitRejectsWhileAwaitingReply(t *testing.T) {
	client := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "hello")
		done <- err
	}()
	<-client.started

	assert.Equal(t, StateAwaitingCompletion, s.State())
	_, err := s.Submit(context.Background(), "are you there?")
	assert.ErrorIs(t, err, ErrSendInFlight)
	assert.Len(t, s.Snapshot(), 2)

	close(client.release)
	require.NoError(t, <-done)
	assert.Len(t, s.Snapshot(), 3)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitHistorySkipsGreetingAndErrors(t *testing.T) {
	client := &scriptedClient{
		errs:    []error{&completion.Error{Code: completion.CodeTransient}},
		replies: []string{"", "Happy to help."},
	}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	turn, err := s.Submit(context.Background(), "first try")
	require.NoError(t, err)
	require.True(t, turn.Failed)

	_, err = s.Submit(context.Background(), "second try")
	require.NoError(t, err)

	assert.Equal(t, []completion.Message{
		{Role: completion.RoleUser, Content: "first try"},
		{Role: completion.RoleUser, Content: "second try"},
	}, client.lastRequest().Messages)
}

func TestSubmitHistoryWindow(t *testing.T) {
	client := &scriptedClient{}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	for i := 0; i < 7; i++ {
		_, err := s.Submit(context.Background(), fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	msgs := client.lastRequest().Messages
	require.Len(t, msgs, 11)
	assert.Equal(t, "message 1", msgs[0].Content)
	assert.Equal(t, completion.RoleUser, msgs[0].Role)
	assert.Equal(t, completion.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "message 6", msgs[10].Content)
}

func TestSubmitEmptyReplyUsesFallback(t *testing.T) {
	client := &scriptedClient{replies: []string{"   "}}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	turn, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, turn.Failed)
	assert.Equal(t, emptyReplyFallback, turn.Reply.Text)
}

func TestSubmitFailureAppendsOneErrorMessage(t *testing.T) {
	client := &scriptedClient{errs: []error{completion.ErrNotConfigured}}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	turn, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)

	assert.True(t, turn.Failed)
	assert.Equal(t, chat.KindError, turn.Reply.Kind)
	assert.Equal(t, completion.UserMessage(completion.ErrNotConfigured), turn.Reply.Text)
	assert.False(t, turn.Decision.Show)
	assert.Len(t, s.Snapshot(), 3)
	assert.Equal(t, StateErrorDisplayed, s.State())

	_, err = s.Submit(context.Background(), "trying again")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, s.State())
}

func newFlakyOpenAI(t *testing.T, failures int) (*completion.OpenAIClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if int(n) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","code":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"We have three session types."},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := completion.NewOpenAIClient(completion.OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})
	require.NoError(t, err)
	return client, &calls
}

func TestSubmitRecoversAfterTransientFailures(t *testing.T) {
	client, calls := newFlakyOpenAI(t, 2)
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	turn, err := s.Submit(context.Background(), "what sessions do you have?")
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.False(t, turn.Failed)
	assert.Equal(t, "We have three session types.", turn.Reply.Text)

	msgs := s.Snapshot()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.NotEqual(t, chat.KindError, m.Kind)
	}
}

func TestSubmitGivesUpAfterRetries(t *testing.T) {
	client, calls := newFlakyOpenAI(t, 3)
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	turn, err := s.Submit(context.Background(), "what sessions do you have?")
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.True(t, turn.Failed)
	assert.Equal(t, "Sorry, I'm having trouble connecting right now. Try again in a sec?", turn.Reply.Text)

	errorTurns := 0
	for _, m := range s.Snapshot() {
		if m.Kind == chat.KindError {
			errorTurns++
		}
		assert.NotContains(t, m.Text, "upstream exploded")
	}
	assert.Equal(t, 1, errorTurns)
}

func TestSubmitPublishesSupportReply(t *testing.T) {
	bus := events.NewMemoryBus(4, nil)
	ch, cancel := bus.Subscribe(events.TopicSupportReply)
	defer cancel()

	m := NewManager(ManagerConfig{Client: &scriptedClient{}, Bus: bus, PickGreeting: firstGreeting})
	s := m.Open(context.Background(), "user-7", "")
	turn, err := s.Submit(context.Background(), "hi")
	require.NoError(t, err)

	select {
	case evt := <-ch:
		assert.Equal(t, "user-7", evt.UserID)
		var payload events.SupportReplyV1
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		assert.Equal(t, turn.Reply.ID, payload.MessageID)
		assert.Equal(t, s.ConversationID(), payload.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("expected support reply event")
	}
}

func TestSubmitRecordsTranscriptAndMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisTranscriptStore(rdb, 50)
	reg := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(reg)

	m := NewManager(ManagerConfig{
		Client:       &scriptedClient{replies: []string{"Sure thing."}},
		Transcript:   store,
		Metrics:      chatMetrics,
		PickGreeting: firstGreeting,
	})
	s := m.Open(context.Background(), "user-1", "")
	_, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)

	stored, err := store.List(context.Background(), s.ConversationID(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, chat.KindGreeting, stored[0].Kind)
	assert.Equal(t, "hello", stored[1].Text)
	assert.Equal(t, "Sure thing.", stored[2].Text)

	expected := `
# HELP photka_support_messages_total Support chat messages appended by role
# TYPE photka_support_messages_total counter
photka_support_messages_total{role="assistant"} 2
photka_support_messages_total{role="user"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "photka_support_messages_total"))
}

func TestDecisionsCoverAssistantMessages(t *testing.T) {
	client := &scriptedClient{replies: []string{"What are you planning?", "Edited DSLR is perfect. When are you thinking? Now or later?"}}
	s := newTestManager(client).Open(context.Background(), "user-1", "")

	_, err := s.Submit(context.Background(), "hi there")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "i'm proposing to my girlfriend")
	require.NoError(t, err)

	decisions := s.Decisions()
	assert.Len(t, decisions, 3)
	for idx := range decisions {
		assert.True(t, s.Snapshot()[idx].IsAssistant())
	}
}

func TestManagerKeepsSessionsSeparate(t *testing.T) {
	m := newTestManager(&scriptedClient{})
	a := m.Open(context.Background(), "user-a", "")
	b := m.Open(context.Background(), "user-b", "")

	_, err := a.Submit(context.Background(), "hello from a")
	require.NoError(t, err)

	assert.Len(t, a.Snapshot(), 3)
	assert.Len(t, b.Snapshot(), 1)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get("user-a")
	require.True(t, ok)
	assert.Same(t, a, got)

	reopened := m.Open(context.Background(), "user-a", "")
	assert.NotSame(t, a, reopened)
	assert.Len(t, reopened.Snapshot(), 1)

	m.Close("user-a")
	_, ok = m.Get("user-a")
	assert.False(t, ok)
}
