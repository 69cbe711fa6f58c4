// Package clickuptest serves an in-memory ClickUp API for tests.
package clickuptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"maintsync/pkg/clickup"
)

type FieldUpdate struct {
	TaskID  string
	FieldID string
	Value   interface{}
}

type Server struct {
	*httptest.Server

	Token   string
	User    clickup.User
	Teams   []clickup.Team
	Folders []clickup.Folder
	// Tasks by list ID.
	Tasks map[string][]clickup.Task
	// FailLists answers 500 for these list IDs.
	FailLists map[string]bool
	// PageSize splits task listings into pages; clickup.TaskPageSize by default.
	PageSize int

	mu            sync.Mutex
	FieldUpdates  []FieldUpdate
	StatusUpdates map[string]string
	Queries       []string
}

func NewServer(token string) *Server {
	s := &Server{
		Token:         token,
		Tasks:         map[string][]clickup.Task{},
		FailLists:     map[string]bool{},
		StatusUpdates: map[string]string{},
		PageSize:      clickup.TaskPageSize,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) Client() *clickup.Client {
	return clickup.New(s.URL, s.Token, clickup.WithHTTPClient(s.Server.Client()))
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)

	r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": s.User})
	})
	r.Get("/team", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"teams": s.Teams})
	})
	r.Get("/team/{teamID}/shared", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"shared": map[string]interface{}{"folders": s.Folders, "lists": []interface{}{}, "tasks": []interface{}{}},
		})
	})
	r.Get("/space/{spaceID}/folder", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"folders": s.Folders})
	})
	r.Get("/folder/{folderID}/list", s.getLists)
	r.Get("/list/{listID}/task", s.getTasks)
	r.Get("/task/{taskID}", s.getTask)
	r.Put("/task/{taskID}", s.putTask)
	r.Post("/task/{taskID}/field/{fieldID}", s.postField)
	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"err": "Token invalid", "ECODE": "OAUTH_025"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getLists(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	for _, f := range s.Folders {
		if f.ID == id {
			writeJSON(w, http.StatusOK, map[string]interface{}{"lists": f.Lists})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"err": "Folder not found"})
}

func (s *Server) getTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listID")
	s.mu.Lock()
	s.Queries = append(s.Queries, r.URL.RawQuery)
	s.mu.Unlock()

	if s.FailLists[id] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"err": "boom"})
		return
	}

	statuses := r.URL.Query()["statuses[]"]
	tasks := []clickup.Task{}
	for _, t := range s.Tasks[id] {
		if len(statuses) > 0 && !containsFold(statuses, t.Status.Status) {
			continue
		}
		tasks = append(tasks, t)
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	start := min(page*s.PageSize, len(tasks))
	end := min(start+s.PageSize, len(tasks))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":     tasks[start:end],
		"last_page": end == len(tasks),
	})
}

func (s *Server) findTask(id string) (clickup.Task, bool) {
	for _, tasks := range s.Tasks {
		for _, t := range tasks {
			if t.ID == id {
				return t, true
			}
		}
	}
	return clickup.Task{}, false
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTask(chi.URLParam(r, "taskID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"err": "Task not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) putTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"err": err.Error()})
		return
	}
	t, ok := s.findTask(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"err": "Task not found"})
		return
	}
	s.mu.Lock()
	s.StatusUpdates[id] = body.Status
	s.mu.Unlock()
	t.Status.Status = body.Status
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) postField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value interface{} `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"err": err.Error()})
		return
	}
	s.mu.Lock()
	s.FieldUpdates = append(s.FieldUpdates, FieldUpdate{
		TaskID:  chi.URLParam(r, "taskID"),
		FieldID: chi.URLParam(r, "fieldID"),
		Value:   body.Value,
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
