package domain

import "time"

// Conversation is a direct message thread between two users. The pair is
// unordered: (a, b) and (b, a) are the same conversation.
type Conversation struct {
	ID        string
	User1ID   string
	User2ID   string
	CreatedAt time.Time
}

// Has reports whether userID is one of the participants.
func (c Conversation) Has(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OrderedPair returns the participants in a canonical order so the pair can
// be stored under a single unique key.
func OrderedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	Timestamp      time.Time
}
