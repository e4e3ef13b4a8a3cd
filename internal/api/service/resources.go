package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/pkg/idx"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

const (
	maxTitleLength    = 255
	maxShortField     = 100
	maxStageColor     = 20
	maxMessageContent = 10000
)

// ProjectService owns project CRUD. Writes are scoped to the creator.
type ProjectService struct {
	Store store.Store
	Now   func() time.Time
}

// ProjectInput is the writable part of a project. TeamMembers are usernames.
type ProjectInput struct {
	Title       string
	Description string
	Image       string
	StageColor  string
	Category    string
	Roles       []string
	Website     string
	TeamSize    int
	TeamMembers []string
	Stage       string
}

// ProjectDetails is a project with its user references resolved to
// usernames.
type ProjectDetails struct {
	domain.Project
	Creator string
	Members []string
}

func (s *ProjectService) Create(ctx context.Context, creatorID string, in ProjectInput) (ProjectDetails, error) {
	now := s.now()
	p := domain.Project{
		ID:        idx.NewAt(now).String(),
		CreatorID: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.apply(ctx, &p, in); err != nil {
		return ProjectDetails{}, err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Projects().CreateProject(ctx, p)
	}); err != nil {
		return ProjectDetails{}, err
	}

	slogx.FromContext(ctx).Info("project created", slog.String("project_id", p.ID))
	return s.details(ctx, p)
}

func (s *ProjectService) Get(ctx context.Context, id string) (ProjectDetails, error) {
	p, err := s.Store.Projects().GetProject(ctx, id)
	if err != nil {
		return ProjectDetails{}, notFound(err)
	}
	return s.details(ctx, p)
}

// List returns every project, newest first.
func (s *ProjectService) List(ctx context.Context) ([]ProjectDetails, error) {
	projects, err := s.Store.Projects().ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	out := make([]ProjectDetails, 0, len(projects))
	for _, p := range projects {
		d, err := s.detailsCached(ctx, p, names)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Update replaces the writable fields. Only the creator may update.
func (s *ProjectService) Update(ctx context.Context, userID, id string, in ProjectInput) (ProjectDetails, error) {
	p, err := s.Store.Projects().GetProject(ctx, id)
	if err != nil {
		return ProjectDetails{}, notFound(err)
	}
	if p.CreatorID != userID {
		return ProjectDetails{}, ErrForbidden
	}

	if err := s.apply(ctx, &p, in); err != nil {
		return ProjectDetails{}, err
	}
	p.UpdatedAt = s.now()

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Projects().UpdateProject(ctx, p)
	}); err != nil {
		return ProjectDetails{}, notFound(err)
	}

	return s.details(ctx, p)
}

// Delete removes a project. Only the creator may delete.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	p, err := s.Store.Projects().GetProject(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if p.CreatorID != userID {
		return ErrForbidden
	}

	if err := s.Store.Projects().DeleteProject(ctx, id); err != nil {
		return notFound(err)
	}

	slogx.FromContext(ctx).Info("project deleted", slog.String("project_id", id))
	return nil
}

// apply validates in and copies it onto p, filling defaults.
func (s *ProjectService) apply(ctx context.Context, p *domain.Project, in ProjectInput) error {
	verr := &ValidationError{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		verr.Add("title", "This field is required.")
	case utf8.RuneCountInString(title) > maxTitleLength:
		verr.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
	}

	stage := domain.DefaultStage
	if in.Stage != "" {
		st, err := domain.ParseStage(strings.ToLower(in.Stage))
		if err != nil {
			verr.Add("stage", fmt.Sprintf("%q is not a valid choice.", in.Stage))
		}
		stage = st
	}

	color := strings.TrimSpace(in.StageColor)
	if color == "" {
		color = domain.DefaultStageColor
	} else if len(color) > maxStageColor {
		verr.Add("stageColor", fmt.Sprintf("Ensure this field has no more than %d characters.", maxStageColor))
	}

	teamSize := in.TeamSize
	switch {
	case teamSize == 0:
		teamSize = domain.DefaultTeamSize
	case teamSize < 0:
		verr.Add("teamSize", "Ensure this value is greater than or equal to 1.")
	}

	if utf8.RuneCountInString(in.Category) > maxShortField {
		verr.Add("category", fmt.Sprintf("Ensure this field has no more than %d characters.", maxShortField))
	}
	for _, r := range in.Roles {
		if utf8.RuneCountInString(r) > maxShortField {
			verr.Add("roles", fmt.Sprintf("Ensure each role has no more than %d characters.", maxShortField))
		}
	}

	members, err := s.resolveUsernames(ctx, in.TeamMembers, verr)
	if err != nil {
		return err
	}

	if err := verr.OrNil(); err != nil {
		return err
	}

	p.Title = title
	p.Description = in.Description
	p.Image = in.Image
	p.StageColor = color
	p.Category = in.Category
	p.Roles = append([]string(nil), in.Roles...)
	p.Website = strings.TrimSpace(in.Website)
	p.TeamSize = teamSize
	p.TeamMembers = members
	p.Stage = stage
	return nil
}

func (s *ProjectService) resolveUsernames(ctx context.Context, usernames []string, verr *ValidationError) ([]string, error) {
	ids := make([]string, 0, len(usernames))
	seen := map[string]bool{}
	for _, name := range usernames {
		u, err := s.Store.Users().GetUserByUsername(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				verr.Add("team_members", fmt.Sprintf("Object with username=%s does not exist.", name))
				continue
			}
			return nil, err
		}
		if !seen[u.ID] {
			seen[u.ID] = true
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (s *ProjectService) details(ctx context.Context, p domain.Project) (ProjectDetails, error) {
	return s.detailsCached(ctx, p, map[string]string{})
}

func (s *ProjectService) detailsCached(ctx context.Context, p domain.Project, names map[string]string) (ProjectDetails, error) {
	username := func(id string) (string, error) {
		if n, ok := names[id]; ok {
			return n, nil
		}
		u, err := s.Store.Users().GetUserByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("resolve user %s: %w", id, err)
		}
		names[id] = u.Username
		return u.Username, nil
	}

	creator, err := username(p.CreatorID)
	if err != nil {
		return ProjectDetails{}, err
	}

	members := make([]string, 0, len(p.TeamMembers))
	for _, id := range p.TeamMembers {
		n, err := username(id)
		if err != nil {
			return ProjectDetails{}, err
		}
		members = append(members, n)
	}

	return ProjectDetails{Project: p, Creator: creator, Members: members}, nil
}

func (s *ProjectService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// MessagingService owns direct conversations and their messages. Every
// operation is scoped to the participants of the conversation.
type MessagingService struct {
	Store store.Store
	Now   func() time.Time
}

// StartConversation opens (or returns the existing) conversation between
// userID and the user named peer. The bool reports whether it was created.
func (s *MessagingService) StartConversation(ctx context.Context, userID, peer string) (domain.Conversation, bool, error) {
	peer = strings.TrimSpace(peer)
	if peer == "" {
		verr := &ValidationError{}
		verr.Add("user", "This field is required.")
		return domain.Conversation{}, false, verr
	}

	other, err := s.Store.Users().GetUserByUsername(ctx, peer)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			verr := &ValidationError{}
			verr.Add("user", fmt.Sprintf("Object with username=%s does not exist.", peer))
			return domain.Conversation{}, false, verr
		}
		return domain.Conversation{}, false, err
	}
	if other.ID == userID {
		verr := &ValidationError{}
		verr.Add("user", "You cannot start a conversation with yourself.")
		return domain.Conversation{}, false, verr
	}

	if c, err := s.Store.Conversations().GetConversationByPair(ctx, userID, other.ID); err == nil {
		return c, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Conversation{}, false, err
	}

	now := s.now()
	a, b := domain.OrderedPair(userID, other.ID)
	c := domain.Conversation{ID: idx.NewAt(now).String(), User1ID: a, User2ID: b, CreatedAt: now}

	if err := s.Store.Conversations().CreateConversation(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			existing, err := s.Store.Conversations().GetConversationByPair(ctx, userID, other.ID)
			return existing, false, err
		}
		return domain.Conversation{}, false, err
	}

	slogx.FromContext(ctx).Info("conversation started", slog.String("conversation_id", c.ID))
	return c, true, nil
}

// Conversation returns id if userID takes part in it. Conversations the
// user is not part of are reported as not found.
func (s *MessagingService) Conversation(ctx context.Context, userID, id string) (domain.Conversation, error) {
	c, err := s.Store.Conversations().GetConversation(ctx, id)
	if err != nil {
		return domain.Conversation{}, notFound(err)
	}
	if !c.Has(userID) {
		return domain.Conversation{}, ErrNotFound
	}
	return c, nil
}

func (s *MessagingService) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.Store.Conversations().ListConversationsForUser(ctx, userID)
}

// Send posts content to a conversation as userID.
func (s *MessagingService) Send(ctx context.Context, userID, conversationID, content string) (domain.Message, error) {
	c, err := s.Conversation(ctx, userID, conversationID)
	if err != nil {
		return domain.Message{}, err
	}

	verr := &ValidationError{}
	switch {
	case strings.TrimSpace(content) == "":
		verr.Add("content", "This field may not be blank.")
	case utf8.RuneCountInString(content) > maxMessageContent:
		verr.Add("content", fmt.Sprintf("Ensure this field has no more than %d characters.", maxMessageContent))
	}
	if err := verr.OrNil(); err != nil {
		return domain.Message{}, err
	}

	now := s.now()
	m := domain.Message{
		ID:             idx.NewAt(now).String(),
		ConversationID: c.ID,
		SenderID:       userID,
		Content:        content,
		Timestamp:      now,
	}
	if err := s.Store.Messages().CreateMessage(ctx, m); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// Messages lists a conversation oldest first.
func (s *MessagingService) Messages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	c, err := s.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.Store.Messages().ListMessages(ctx, c.ID)
}

// DeleteMessage removes a message. Only its sender may delete it.
func (s *MessagingService) DeleteMessage(ctx context.Context, userID, id string) error {
	m, err := s.Store.Messages().GetMessage(ctx, id)
	if err != nil {
		return notFound(err)
	}

	if _, err := s.Conversation(ctx, userID, m.ConversationID); err != nil {
		return err
	}
	if m.SenderID != userID {
		return ErrForbidden
	}

	return notFound(s.Store.Messages().DeleteMessage(ctx, id))
}

func (s *MessagingService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
