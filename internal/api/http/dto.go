package http

import (
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/idx"
)

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role.String(),
		CreatedAt:   u.CreatedAt,
	}
}

func projectInput(req authsdk.ProjectRequest) service.ProjectInput {
	return service.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		StageColor:  req.StageColor,
		Category:    req.Category,
		Roles:       req.Roles,
		Website:     req.Website,
		TeamSize:    req.TeamSize,
		TeamMembers: req.TeamMembers,
		Stage:       req.Stage,
	}
}

func projectResponse(p service.ProjectDetails) authsdk.ProjectResponse {
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	members := p.Members
	if members == nil {
		members = []string{}
	}

	return authsdk.ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Creator:     p.Creator,
		Image:       p.Image,
		StageColor:  p.StageColor,
		Category:    p.Category,
		Roles:       roles,
		Website:     p.Website,
		TeamSize:    p.TeamSize,
		TeamMembers: members,
		Stage:       string(p.Stage),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func conversationResponse(c domain.Conversation) authsdk.ConversationResponse {
	return authsdk.ConversationResponse{
		ID:        c.ID,
		User1:     c.User1ID,
		User2:     c.User2ID,
		CreatedAt: c.CreatedAt,
	}
}

func messageResponse(m domain.Message) authsdk.ChatMessageResponse {
	return authsdk.ChatMessageResponse{
		ID:           m.ID,
		Conversation: m.ConversationID,
		Sender:       m.SenderID,
		Content:      m.Content,
		Timestamp:    m.Timestamp,
	}
}

// pathID reads the {id} segment. Anything that isn't an id we could have
// minted is answered with 404 without touching the store.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		authsdk.ErrNotFound.WriteError(w)
		return "", false
	}
	return id.String(), true
}
