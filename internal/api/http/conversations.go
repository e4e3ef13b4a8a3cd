package http

import (
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// ConversationsHandler serves conversations and their messages. Users only
// ever see conversations they take part in.
type ConversationsHandler struct {
	Messaging *service.MessagingService
}

// HandleList godoc
//
//	@Summary	List conversations
//	@Tags		Conversations
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}		authsdk.ConversationResponse
//	@Failure	401	{object}	authsdk.APIError	"invalid_token"
//	@Router		/conversations [get].
func (h *ConversationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	convs, err := h.Messaging.Conversations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	out := make([]authsdk.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleStart godoc
//
//	@Summary		Start conversation
//	@Description	Opens a conversation with the named user. Returns 200 with the existing conversation if the pair already has one.
//	@Tags			Conversations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.ConversationRequest	true	"Other participant"
//	@Success		201		{object}	authsdk.ConversationResponse
//	@Success		200		{object}	authsdk.ConversationResponse
//	@Failure		400		{object}	authsdk.APIError	"validation_error"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Router			/conversations [post].
func (h *ConversationsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ConversationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	c, created, err := h.Messaging.StartConversation(r.Context(), userID, req.User)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, conversationResponse(c))
}

// HandleGet godoc
//
//	@Summary	Get conversation
//	@Tags		Conversations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Conversation ID"
//	@Success	200	{object}	authsdk.ConversationResponse
//	@Failure	401	{object}	authsdk.APIError	"invalid_token"
//	@Failure	404	{object}	authsdk.APIError	"not_found"
//	@Router		/conversations/{id} [get].
func (h *ConversationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())

	c, err := h.Messaging.Conversation(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, conversationResponse(c))
}

// HandleListMessages godoc
//
//	@Summary	List messages
//	@Tags		Conversations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Conversation ID"
//	@Success	200	{array}		authsdk.ChatMessageResponse	"oldest first"
//	@Failure	401	{object}	authsdk.APIError			"invalid_token"
//	@Failure	404	{object}	authsdk.APIError			"not_found"
//	@Router		/conversations/{id}/messages [get].
func (h *ConversationsHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())

	msgs, err := h.Messaging.Messages(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	out := make([]authsdk.ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleSend godoc
//
//	@Summary		Send message
//	@Description	The authenticated user is the sender.
//	@Tags			Conversations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Conversation ID"
//	@Param			body	body		authsdk.ChatMessageRequest	true	"Message"
//	@Success		201		{object}	authsdk.ChatMessageResponse
//	@Failure		400		{object}	authsdk.APIError	"validation_error"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		404		{object}	authsdk.APIError	"not_found"
//	@Router			/conversations/{id}/messages [post].
func (h *ConversationsHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req authsdk.ChatMessageRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	m, err := h.Messaging.Send(r.Context(), userID, id, req.Content)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, messageResponse(m))
}

// HandleDeleteMessage godoc
//
//	@Summary	Delete message
//	@Tags		Conversations
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Message ID"
//	@Success	204
//	@Failure	401	{object}	authsdk.APIError	"invalid_token"
//	@Failure	403	{object}	authsdk.APIError	"forbidden"
//	@Failure	404	{object}	authsdk.APIError	"not_found"
//	@Router		/messages/{id} [delete].
func (h *ConversationsHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	if err := h.Messaging.DeleteMessage(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
