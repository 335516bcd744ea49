package chat

import (
	"fmt"
	"math/rand"
	"strings"
)

var greetings = []string{
	"Hey %s! What can I help you with today?",
	"Hi %s! Thanks for reaching out. I'm here to help with anything: bookings, questions about sessions, or just figuring out what works best for you. What's on your mind?",
	"Hey %s! Welcome to photka support. Whether you need help booking a shoot, have questions about pricing, or anything else, I've got you. What's up?",
}

// Greeting returns a welcome line for name. pick chooses the variant; nil picks at random.
func Greeting(name string, pick func(n int) int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	if pick == nil {
		pick = rand.Intn
	}
	i := pick(len(greetings))
	if i < 0 || i >= len(greetings) {
		i = 0
	}
	return fmt.Sprintf(greetings[i], name)
}

// FirstName extracts the first word of a full name.
func FirstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
