package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"autocare/internal/chat"
	"autocare/internal/core"
	applog "autocare/internal/log"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Messages []core.ChatTurn `json:"messages"`
	Awaiting bool            `json:"awaiting"`
}

// getSession returns the server's chat session, seeding it with the
// current vehicle and expense count on first use.
func (s *Server) getSession(ctx context.Context) (*chat.Session, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.session != nil {
		return s.session, nil
	}

	session, err := s.newSession(ctx)
	if err != nil {
		return nil, err
	}
	s.session = session
	return s.session, nil
}

func (s *Server) newSession(ctx context.Context) (*chat.Session, error) {
	vehicle, err := s.svc.Vehicle(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.svc.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewSession(vehicle, len(records), time.Now()), nil
}

func (s *Server) handleChatTranscript(w http.ResponseWriter, r *http.Request) {
	session, err := s.getSession(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("Chat session init failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Messages: session.Turns(), Awaiting: session.Awaiting()})
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if s.chatCtl == nil {
		writeError(w, http.StatusServiceUnavailable, "chat assistant not configured")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := sanitizeInput(req.Message)
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	session, err := s.getSession(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("Chat session init failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	ctx, cancel := s.aiContext(r.Context())
	defer cancel()

	if !s.chatCtl.Send(ctx, session, text) {
		writeError(w, http.StatusConflict, "a message is already being processed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Messages: session.Turns(), Awaiting: session.Awaiting()})
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	session, err := s.newSession(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("Chat session reset failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.sessionMu.Lock()
	s.session = session
	s.sessionMu.Unlock()

	writeJSON(w, http.StatusOK, chatResponse{Messages: session.Turns(), Awaiting: session.Awaiting()})
}
