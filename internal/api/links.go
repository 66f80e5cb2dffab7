package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListLinks handles GET /api/links.
//
//	@Summary		List links for display
//	@Tags			links
//	@Produce		json
//	@Param			sort	query		string	false	"Ordering, defaults to layout.sortBy"	Enums(custom, alphabetical, most-used)
//	@Param			page	query		int		false	"Zero-based page"
//	@Success		200		{object}	LinksPageResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [get]
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	res, err := h.svc.Links(r.Context(), r.URL.Query().Get("sort"), page)
	if err != nil {
		writeError(w, "list links", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetLink handles GET /api/links/{id}.
//
//	@Summary		Get one link
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Link id"
//	@Success		200	{object}	models.Link
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{id} [get]
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get link", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// CreateLink handles POST /api/links.
//
//	@Summary		Add a link
//	@Description	Addresses without a scheme get https://.
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateLinkRequest	true	"Link to add"
//	@Success		201		{object}	models.Link
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := h.svc.AddLink(r.Context(), req)
	if err != nil {
		writeError(w, "create link", err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// UpdateLink handles PUT /api/links/{id}.
//
//	@Summary		Edit a link
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Link id"
//	@Param			body	body		UpdateLinkRequest	true	"Fields to change"
//	@Success		200		{object}	models.Link
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{id} [put]
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	var req UpdateLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := h.svc.EditLink(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update link", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /api/links/{id}. Deleting an unknown id succeeds.
//
//	@Summary		Remove a link
//	@Tags			links
//	@Param			id	path	string	true	"Link id"
//	@Success		204	"Link removed"
//	@Security		BearerAuth
//	@Router			/links/{id} [delete]
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	h.svc.RemoveLink(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClickLink handles POST /api/links/{id}/click.
//
//	@Summary		Record a click and get the link to open
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Link id"
//	@Success		200	{object}	models.Link
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{id}/click [post]
func (h *Handler) ClickLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.OpenLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "click link", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
