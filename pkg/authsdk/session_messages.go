package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListConversations returns the conversations the session's user is in.
func (s *Session) ListConversations(ctx context.Context) ([]ConversationResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, err
	}

	var out []ConversationResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// StartConversation opens a conversation with username, or returns the one
// that already exists.
func (s *Session) StartConversation(ctx context.Context, username string) (*ConversationResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/conversations", ConversationRequest{User: username})
	if err != nil {
		return nil, err
	}

	// 201 when created, 200 when it already existed.
	expected := http.StatusCreated
	if resp.StatusCode == http.StatusOK {
		expected = http.StatusOK
	}

	var out ConversationResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetConversation(ctx context.Context, id string) (*ConversationResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out ConversationResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *Session) ListMessages(ctx context.Context, conversationID string) ([]ChatMessageResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID)+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var out []ChatMessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) SendMessage(ctx context.Context, conversationID, content string) (*ChatMessageResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/conversations/"+url.PathEscape(conversationID)+"/messages",
		ChatMessageRequest{Content: content})
	if err != nil {
		return nil, err
	}

	var out ChatMessageResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage deletes a message. Only its sender may do this.
func (s *Session) DeleteMessage(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
