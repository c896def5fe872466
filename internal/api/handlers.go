package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xaenox/botfleet/internal/botconfig"
	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/registry"
)

// keywordList accepts either a delimited string or an array of strings. null leaves it unset.
type keywordList struct {
	value string
	set   bool
}

func (k *keywordList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.value, k.set = s, true
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return &botconfig.ValidationError{Field: "keywords", Reason: "must be a string or an array of strings"}
	}
	k.value, k.set = strings.Join(list, botconfig.KeywordSeparator), true
	return nil
}

// configPatch carries the config fields a client sent. Missing fields keep their base value.
type configPatch struct {
	ActivityLevel *int             `json:"activityLevel"`
	Keywords      keywordList      `json:"keywords"`
	Schedule      *models.Schedule `json:"schedule"`
	RespectLimits *bool            `json:"respectLimits"`
}

func (p *configPatch) apply(base botconfig.Raw) botconfig.Raw {
	if p == nil {
		return base
	}
	if p.ActivityLevel != nil {
		base.ActivityLevel = *p.ActivityLevel
	}
	if p.Keywords.set {
		base.Keywords = p.Keywords.value
	}
	if p.Schedule != nil {
		if p.Schedule.Start != "" {
			base.Schedule.Start = p.Schedule.Start
		}
		if p.Schedule.End != "" {
			base.Schedule.End = p.Schedule.End
		}
	}
	if p.RespectLimits != nil {
		base.RespectLimits = *p.RespectLimits
	}
	return base
}

type createBotRequest struct {
	Type        models.BotType `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      *configPatch   `json:"config"`
}

type updateBotRequest struct {
	IsActive *bool        `json:"isActive"`
	Config   *configPatch `json:"config"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var verr *botconfig.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &botconfig.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.registry.ListBots(r.Context(), ownerFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req createBotRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	bot, err := s.registry.CreateBot(r.Context(), ownerFrom(r), registry.CreateRequest{
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config.apply(botconfig.Default()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bot)
}

// ownedBot loads the bot named in the path. Bots of other owners are reported as missing.
func (s *Server) ownedBot(r *http.Request) (*models.Bot, error) {
	bot, err := s.registry.GetBot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if bot.OwnerID != ownerFrom(r).ID {
		return nil, models.ErrNotFound
	}
	return bot, nil
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.ownedBot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	var req updateBotRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.IsActive == nil && req.Config == nil {
		s.writeError(w, r, &botconfig.ValidationError{Field: "body", Reason: "nothing to update"})
		return
	}

	bot, err := s.ownedBot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Config != nil {
		bot, err = s.registry.UpdateConfig(r.Context(), bot.ID, req.Config.apply(botconfig.RawFrom(bot.Config)))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.IsActive != nil {
		bot, err = s.registry.SetActive(r.Context(), bot.ID, *req.IsActive)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleRetireBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.ownedBot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.registry.RetireBot(r.Context(), bot.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	activities, err := s.feed.RecentActivities(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	posts, err := s.feed.RecentPosts(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.feed.CommentsByPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.stats.Dashboard(r.Context(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
