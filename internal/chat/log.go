package chat

import "sync"

// Log is the ordered, append-only list of turns for one conversation.
// Readers always work on a Snapshot so evaluation never observes a partial append.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog returns a log seeded with the given messages.
func NewLog(seed ...Message) *Log {
	l := &Log{}
	for _, m := range seed {
		l.Append(m)
	}
	return l
}

// Append adds m to the end of the log and returns the stored copy.
// A timestamp earlier than the previous message is clamped forward so CreatedAt
// never decreases within the conversation.
func (l *Log) Append(m Message) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.messages); n > 0 {
		last := l.messages[n-1].CreatedAt
		if m.CreatedAt.Before(last) {
			m.CreatedAt = last
		}
	}
	l.messages = append(l.messages, m)
	return m
}

// Snapshot returns a copy of the current messages.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the most recent message.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// History returns up to limit turns that were actually exchanged with the model,
// oldest first. Greetings and error notices are skipped.
func History(messages []Message, limit int) []Message {
	kept := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.LocalOnly() {
			continue
		}
		kept = append(kept, m)
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
