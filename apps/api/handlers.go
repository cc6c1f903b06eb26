package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mahaj/community-chat/pkg/model"
	"github.com/mahaj/community-chat/pkg/store"
)

const historyLimit = 50

// Default channels provisioned with every new community.
var defaultChannels = []struct {
	name, description string
}{
	{"general", "General discussion"},
	{"introductions", "Introduce yourself"},
}

type server struct {
	store  store.Store
	logger *slog.Logger
}

func newServer(st store.Store, logger *slog.Logger) *server {
	return &server{store: st, logger: logger.With(slog.String("component", "api"))}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/communities", s.listCommunities)
	mux.HandleFunc("GET /api/communities/{id}", s.getCommunity)
	mux.HandleFunc("POST /api/communities", s.createCommunity)
	mux.HandleFunc("POST /api/communities/{id}/join", s.joinCommunity)
	mux.HandleFunc("GET /api/channels/{channelId}/messages", s.channelMessages)
	return mux
}

func (s *server) listCommunities(w http.ResponseWriter, r *http.Request) {
	communities, err := s.store.ListCommunities(r.Context())
	if err != nil {
		s.logger.Error("list communities failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to list communities")
		return
	}
	if communities == nil {
		communities = []model.Community{}
	}
	writeJSON(w, http.StatusOK, communities)
}

func (s *server) getCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := s.store.FindCommunityByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Community not found")
		return
	}
	if err != nil {
		s.logger.Error("get community failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to get community")
		return
	}
	writeJSON(w, http.StatusOK, community)
}

func (s *server) createCommunity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	community := &model.Community{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Members:     []string{},
	}

	for _, dc := range defaultChannels {
		community.Channels = append(community.Channels, model.Channel{
			ID:          uuid.NewString(),
			Name:        dc.name,
			Description: dc.description,
			CommunityID: community.ID,
		})
	}

	// The community document goes in first. If a channel write fails below,
	// lookups skip the unresolved reference rather than leaving channel rows
	// that belong to no stored community.
	if err := s.store.SaveCommunity(r.Context(), community); err != nil {
		s.logger.Error("create community failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to create community")
		return
	}

	for i := range community.Channels {
		if err := s.store.SaveChannel(r.Context(), &community.Channels[i]); err != nil {
			s.logger.Error("create channel failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Failed to create community")
			return
		}
	}

	s.logger.Info("community created", slog.String("community_id", community.ID), slog.String("name", community.Name))
	writeJSON(w, http.StatusCreated, community)
}

func (s *server) joinCommunity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Member string `json:"member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Member == "" {
		writeError(w, http.StatusBadRequest, "member is required")
		return
	}

	err := s.store.AddCommunityMember(r.Context(), r.PathValue("id"), req.Member)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Community not found")
		return
	}
	if err != nil {
		s.logger.Error("join community failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to join community")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Joined community successfully"})
}

func (s *server) channelMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.FindRecentMessages(r.Context(), r.PathValue("channelId"), historyLimit)
	if err != nil {
		s.logger.Error("channel history failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
