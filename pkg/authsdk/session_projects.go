package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListProjects returns every project, newest first.
func (s *Session) ListProjects(ctx context.Context) ([]ProjectResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/projects", nil)
	if err != nil {
		return nil, err
	}

	var out []ProjectResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project owned by the session's user.
func (s *Session) CreateProject(ctx context.Context, req ProjectRequest) (*ProjectResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/projects", req)
	if err != nil {
		return nil, err
	}

	var out ProjectResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetProject(ctx context.Context, id string) (*ProjectResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out ProjectResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject replaces a project's fields. Only its creator may do this.
func (s *Session) UpdateProject(ctx context.Context, id string, req ProjectRequest) (*ProjectResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), req)
	if err != nil {
		return nil, err
	}

	var out ProjectResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject deletes a project. Only its creator may do this.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
