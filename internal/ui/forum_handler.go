package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

const forumHeartbeat = 25 * time.Second

func (h *Handler) Forums(w http.ResponseWriter, r *http.Request) {
	forums, err := h.forums(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "forums")
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title":   "Community",
		"Page":    paginate(forums, parsePage(r), forumsPerPage),
		"VoterID": h.voterID(r),
	})
	h.render(w, r, "forums.html", data)
}

func (h *Handler) ForumDetails(w http.ResponseWriter, r *http.Request) {
	forum, err := h.forum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.upstreamFailure(w, r, err, "forum")
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title": forum.Title,
		"Forum": forum,
	})
	h.render(w, r, "forum.html", data)
}

// voterID is the backend profile id of the signed-in user, falling back to
// the identity uid for profiles that carry no id. It is "" when signed out.
func (h *Handler) voterID(r *http.Request) string {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return ""
	}
	if profile, err := h.roles.Profile(r.Context(), sess.Email); err == nil && profile.ID != "" {
		return profile.ID
	}
	return sess.UID
}

// Vote records an upvote or downvote. The forum list shows the vote at once
// and is refetched when the backend accepts it; a rejected vote leaves the
// list as it was.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/forums"
	if r.URL.Query().Get("back") == "detail" {
		back = "/forums/" + id
	} else if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		back = "/forums?page=" + strconv.Itoa(p)
	}

	direction := api.VoteDirection(r.FormValue("type"))
	if direction != api.Upvote && direction != api.Downvote {
		errors.BadRequestError(w, r, fmt.Errorf("vote type %q", direction), "invalid vote")
		return
	}
	voter := h.voterID(r)
	if voter == "" {
		h.redirect(w, r, back, map[string]string{"error": "Please login to vote"})
		return
	}

	overlay := cache.Overlay(func(forums []api.Forum) []api.Forum {
		out := slices.Clone(forums)
		for i := range out {
			if out[i].ID == id {
				out[i].Votes = api.ApplyVote(out[i].Votes, voter, direction)
			}
		}
		return out
	})
	err := h.cache.WriteOptimistic(r.Context(), cache.K(cache.ResForums), overlay, func(ctx context.Context) error {
		return h.api.Vote(ctx, id, voter, direction)
	}, cache.K(cache.ResForum, id))
	if err != nil {
		errors.LogError(r, "vote failed", err)
		h.redirect(w, r, back, map[string]string{"error": failureMessage(err, "Failed to vote. Please try again.")})
		return
	}
	h.redirect(w, r, back, nil)
}

type forumEvent struct {
	ID    string `json:"id"`
	Tally int    `json:"tally"`
	Votes int    `json:"votes"`
}

// ForumEvents streams the vote tally of one post as server-sent events,
// sending the current value on connect and again whenever the cached post
// changes.
func (h *Handler) ForumEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	rc := http.NewResponseController(w)

	changes, cancel := h.cache.Subscribe(cache.K(cache.ResForum, id))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)

	send := func() error {
		forum, err := h.forum(ctx, id)
		if err != nil {
			if _, werr := fmt.Fprintf(w, "event: error\ndata: %q\n\n", "Failed to load forum"); werr != nil {
				return werr
			}
			return rc.Flush()
		}
		payload, err := json.Marshal(forumEvent{ID: forum.ID, Tally: api.Tally(forum.Votes), Votes: len(forum.Votes)})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: forum\ndata: %s\n\n", payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(); err != nil {
		errors.LogError(r, "forum event stream failed", err)
		return
	}
	heartbeat := time.NewTicker(forumHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := send(); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

type forumForm struct {
	Title   string
	Content string
}

func (h *Handler) AddForum(w http.ResponseWriter, r *http.Request) {
	h.showAddForum(w, r, http.StatusOK, forumForm{}, "")
}

func (h *Handler) showAddForum(w http.ResponseWriter, r *http.Request, status int, form forumForm, message string) {
	data := h.withFlash(r, map[string]any{
		"Title":     "Add Forum",
		"Dashboard": true,
		"Form":      form,
	})
	if message != "" {
		data["FlashError"] = message
	}
	h.renderStatus(w, r, status, "add_forum.html", data)
}

func (h *Handler) AddForumSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.showAddForum(w, r, http.StatusBadRequest, forumForm{}, "invalid form")
		return
	}
	form := forumForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: strings.TrimSpace(r.FormValue("content")),
	}
	if form.Title == "" || form.Content == "" {
		h.showAddForum(w, r, http.StatusBadRequest, form, "Please enter a title and content")
		return
	}

	sess := session(r)
	post := api.Forum{
		Title:       form.Title,
		Content:     form.Content,
		AuthorName:  sess.DisplayName,
		AuthorEmail: sess.Email,
		AuthorImage: sess.PhotoURL,
		AuthorRole:  auth.RoleFromContext(r.Context()),
		CreatedAt:   time.Now().UTC(),
	}
	if profile, err := h.roles.Profile(r.Context(), sess.Email); err == nil {
		post.AuthorName = profile.Name
		if profile.PhotoURL != "" {
			post.AuthorImage = profile.PhotoURL
		}
	}

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.CreateForum(ctx, post)
	}, cache.K(cache.ResForums))
	if err != nil {
		errors.LogError(r, "create forum failed", err)
		h.showAddForum(w, r, errors.UpstreamStatus(err), form, failureMessage(err, "Failed to create forum. Please try again."))
		return
	}
	h.redirect(w, r, "/forums", map[string]string{"status": "Forum created successfully!"})
}
