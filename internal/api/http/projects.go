package http

import (
	"net/http"

	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/pkg/authsdk"
	"github.com/aussiebroadwan/collab/pkg/httpx"
)

// ProjectsHandler serves /projects. Every route requires authentication.
type ProjectsHandler struct {
	Projects *service.ProjectService
}

// HandleList godoc
//
//	@Summary	List projects
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}		authsdk.ProjectResponse	"newest first"
//	@Failure	401	{object}	authsdk.APIError		"invalid_token"
//	@Router		/projects [get].
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	out := make([]authsdk.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create project
//	@Description	The authenticated user becomes the creator. team_members are usernames.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.ProjectRequest	true	"Project"
//	@Success		201		{object}	authsdk.ProjectResponse
//	@Failure		400		{object}	authsdk.APIError	"validation_error"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Router			/projects [post].
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ProjectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	p, err := h.Projects.Create(r.Context(), userID, projectInput(req))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, projectResponse(p))
}

// HandleGet godoc
//
//	@Summary	Get project
//	@Tags		Projects
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Project ID"
//	@Success	200	{object}	authsdk.ProjectResponse
//	@Failure	401	{object}	authsdk.APIError	"invalid_token"
//	@Failure	404	{object}	authsdk.APIError	"not_found"
//	@Router		/projects/{id} [get].
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.Projects.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, projectResponse(p))
}

// HandleUpdate godoc
//
//	@Summary		Update project
//	@Description	Replaces the project's fields. Only the creator may update.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Project ID"
//	@Param			body	body		authsdk.ProjectRequest	true	"Project"
//	@Success		200		{object}	authsdk.ProjectResponse
//	@Failure		400		{object}	authsdk.APIError	"validation_error"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"forbidden"
//	@Failure		404		{object}	authsdk.APIError	"not_found"
//	@Router			/projects/{id} [put].
func (h *ProjectsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req authsdk.ProjectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	p, err := h.Projects.Update(r.Context(), userID, id, projectInput(req))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, projectResponse(p))
}

// HandleDelete godoc
//
//	@Summary	Delete project
//	@Tags		Projects
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Project ID"
//	@Success	204
//	@Failure	401	{object}	authsdk.APIError	"invalid_token"
//	@Failure	403	{object}	authsdk.APIError	"forbidden"
//	@Failure	404	{object}	authsdk.APIError	"not_found"
//	@Router		/projects/{id} [delete].
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	userID, _ := httpx.UserIDFromContext(r.Context())
	if err := h.Projects.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, false)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
