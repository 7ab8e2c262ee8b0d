package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/inboxshelf/internal/posts"
)

type indexData struct {
	Query      posts.Query
	Categories []string
	Posts      []posts.Post
	Count      int
	Total      int
}

// postWithImage is a catalog entry with its resolved image.
type postWithImage struct {
	posts.Post
	Image *string `json:"image"`
}

type imageResponse struct {
	Image *string `json:"image"`
	Error string  `json:"error,omitempty"`
}

// queryFrom reads ?category= and ?q=. A missing category means All.
func queryFrom(r *http.Request) posts.Query {
	v := r.URL.Query()
	q := posts.Query{Category: v.Get("category"), Search: v.Get("q")}
	if q.Category == "" {
		q.Category = posts.CategoryAll
	}
	return q
}

func allCategories(snap *Snapshot) []string {
	return append([]string{posts.CategoryAll}, snap.Categories...)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Snapshot()
	q := queryFrom(r)
	filtered := q.Apply(snap.Posts)

	s.render(w, "index.html", indexData{
		Query:      q,
		Categories: allCategories(snap),
		Posts:      filtered,
		Count:      len(filtered),
		Total:      len(snap.Posts),
	})
}

// handlePosts serves the filtered catalog. With ?images=true each post
// also carries its resolved image.
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	filtered := queryFrom(r).Apply(s.catalog.Snapshot().Posts)

	withImages, _ := strconv.ParseBool(r.URL.Query().Get("images"))
	if !withImages {
		writeJSON(w, http.StatusOK, filtered)
		return
	}

	locators := make([]string, len(filtered))
	for i, p := range filtered {
		locators[i] = p.Path
	}
	resolved := s.resolver.ResolveAll(r.Context(), locators)

	out := make([]postWithImage, len(filtered))
	for i, p := range filtered {
		out[i] = postWithImage{Post: p, Image: optional(resolved[p.Path])}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, allCategories(s.catalog.Snapshot()))
}

func (s *Server) handlePostImage(w http.ResponseWriter, r *http.Request) {
	post, ok := posts.FindByID(s.catalog.Snapshot().Posts, chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, imageResponse{Error: "post not found"})
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: optional(s.resolver.Resolve(r.Context(), post.Path))})
}

// handleImage resolves the image of the post at ?path=. Only catalog paths
// are accepted.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	post, ok := posts.FindByPath(s.catalog.Snapshot().Posts, r.URL.Query().Get("path"))
	if !ok {
		writeJSON(w, http.StatusNotFound, imageResponse{Error: "post not found"})
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: optional(s.resolver.Resolve(r.Context(), post.Path))})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
