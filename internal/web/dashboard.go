package web

import (
	"net/http"
	"strings"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/routes"
	"github.com/debemdeboas/postly/internal/sse"
)

type dashboardPage struct {
	*model.PageData
	Posts []blog.PostView
}

func (h *Handler) serveDashboard(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context(), model.PostFilter{Limit: blog.MaxLimit})
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	h.tmpl.Render(w, config.TemplateDashboard, http.StatusOK, dashboardPage{
		PageData: model.NewPageData(r, "Dashboard"),
		Posts:    blog.Views(posts),
	})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "post")
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), id); err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	webLogger.Info().Int64("post_id", id).Msg("Post deleted")
	http.Redirect(w, r, routes.Dashboard, http.StatusSeeOther)
}

func (h *Handler) togglePublished(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "post")
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}
	post, err := h.svc.GetPostByID(r.Context(), id)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	published := !post.Published
	post, err = h.svc.UpdatePost(r.Context(), id, model.PostPatch{Published: &published})
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}
	h.clients.Broadcast(post.Slug, sse.MsgReload)

	http.Redirect(w, r, routes.Dashboard, http.StatusSeeOther)
}

type categoriesPage struct {
	*model.PageData
	Categories []model.Category
	Error      string
	Field      string
	Name       string
}

func (h *Handler) renderCategories(w http.ResponseWriter, r *http.Request, status int, formErr error, name string) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	data := categoriesPage{
		PageData:   model.NewPageData(r, "Categories"),
		Categories: categories,
		Name:       name,
	}
	if formErr != nil {
		data.Error = apperr.Message(formErr)
		data.Field = apperr.Field(formErr)
	}
	h.tmpl.Render(w, config.TemplateCategories, status, data)
}

func (h *Handler) serveCategories(w http.ResponseWriter, r *http.Request) {
	h.renderCategories(w, r, http.StatusOK, nil, "")
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	in := model.CategoryInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	if _, err := h.svc.CreateCategory(r.Context(), in); err != nil {
		if apperr.IsValidation(err) {
			h.renderCategories(w, r, apperr.HTTPStatus(err), err, in.Name)
			return
		}
		h.tmpl.Error(w, r, err)
		return
	}
	http.Redirect(w, r, routes.DashboardCategories, http.StatusSeeOther)
}

// changeCategory updates or deletes a category, picked by the form's action
// field.
func (h *Handler) changeCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "category")
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	switch strings.ToLower(r.FormValue("action")) {
	case "delete":
		err = h.svc.DeleteCategory(r.Context(), id)
	case "update", "":
		name := r.FormValue("name")
		description := r.FormValue("description")
		_, err = h.svc.UpdateCategory(r.Context(), id, model.CategoryPatch{Name: &name, Description: &description})
	default:
		err = apperr.NewValidation("action", "Unknown action")
	}

	if err != nil {
		if apperr.IsValidation(err) {
			h.renderCategories(w, r, apperr.HTTPStatus(err), err, "")
			return
		}
		h.tmpl.Error(w, r, err)
		return
	}
	http.Redirect(w, r, routes.DashboardCategories, http.StatusSeeOther)
}
