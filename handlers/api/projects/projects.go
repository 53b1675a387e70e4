package projects

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type createRequest struct {
	Name     string                `json:"name"`
	Document *core.ProjectDocument `json:"document,omitempty"`
}

type joinRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type joinResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
}

type appendRequest struct {
	Messages []*core.Message `json:"messages"`
}

type appendResponse struct {
	LastSeq int64 `json:"lastSeq"`
}

type messagesResponse struct {
	Messages []core.StoredMessage `json:"messages"`
}

func HandleCreate(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Name == "" {
			req.Name = "Untitled project"
		}
		doc := req.Document
		if doc == nil {
			doc = core.NewProjectDocument()
		}

		meta, err := store.CreateProject(r.Context(), req.Name, doc)
		if err != nil {
			logrus.WithError(err).Error("Failed to create project")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create project"})
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, meta)
	}
}

func HandleGet(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := store.GetProject(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"project_id": id,
			}).Warn("Failed to get project")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Project not found"})
			return
		}
		render.JSON(w, r, doc)
	}
}

func HandleSave(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var doc core.ProjectDocument
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if doc.Objects == nil || doc.Layers == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Document must include objects and layers"})
			return
		}

		if err := store.SaveProject(r.Context(), id, &doc); err != nil {
			status := http.StatusInternalServerError
			if strings.Contains(err.Error(), "not found") {
				status = http.StatusNotFound
			}
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"project_id": id,
			}).Error("Failed to save project")
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Failed to save project"})
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "saved"})
	}
}

// HandleJoin admits a participant to a project and issues the session token
// the message endpoints require.
func HandleJoin(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := store.GetProject(r.Context(), id); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Project not found"})
			return
		}

		var req joinRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Name == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Participant name is required"})
			return
		}

		userID := ulid.Make().String()
		token, err := middleware.IssueSessionToken(userID, id, req.Name, req.Color)
		if err != nil {
			logrus.WithError(err).Error("Failed to issue session token")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to issue session token"})
			return
		}

		logrus.WithFields(logrus.Fields{
			"project_id": id,
			"user_id":    userID,
			"name":       req.Name,
		}).Info("Participant joined project")
		render.JSON(w, r, joinResponse{Token: token, UserID: userID, ProjectID: id})
	}
}

func HandleAppendMessages(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*middleware.SessionClaims)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Session claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		if claims.ProjectID != id {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Token is not valid for this project"})
			return
		}

		var req appendRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if len(req.Messages) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "At least one message is required"})
			return
		}

		lastSeq, err := store.AppendMessages(r.Context(), id, req.Messages)
		if err != nil {
			status := http.StatusInternalServerError
			if strings.Contains(err.Error(), "not found") {
				status = http.StatusNotFound
			}
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"project_id": id,
				"user_id":    claims.Subject,
			}).Error("Failed to append messages")
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Failed to append messages"})
			return
		}
		render.JSON(w, r, appendResponse{LastSeq: lastSeq})
	}
}

func HandleGetMessages(store core.ProjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*middleware.SessionClaims)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Session claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		if claims.ProjectID != id {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Token is not valid for this project"})
			return
		}

		var after int64
		if raw := r.URL.Query().Get("after"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Invalid after parameter"})
				return
			}
			after = parsed
		}

		msgs, err := store.MessagesSince(r.Context(), id, after)
		if err != nil {
			status := http.StatusInternalServerError
			if strings.Contains(err.Error(), "not found") {
				status = http.StatusNotFound
			}
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"project_id": id,
			}).Error("Failed to read messages")
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Failed to read messages"})
			return
		}
		render.JSON(w, r, messagesResponse{Messages: msgs})
	}
}
