package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/m-mizutani/kioku/pkg/vector"
)

type sessionResponse struct {
	SessionID model.SessionID `json:"sessionId"`
	ActorID   model.ActorID   `json:"actorId"`
	StartTime string          `json:"startTime"`
	EndTime   *string         `json:"endTime,omitempty"`
	Title     string          `json:"title,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
}

func toSessionResponse(s *model.Session) *sessionResponse {
	resp := &sessionResponse{
		SessionID: s.ID,
		ActorID:   s.ActorID,
		StartTime: s.StartTime.Format(timeFormat),
		Title:     s.Title,
		Tags:      s.Tags,
	}
	if s.EndTime != nil {
		t := s.EndTime.Format(timeFormat)
		resp.EndTime = &t
	}
	return resp
}

type eventResponse struct {
	EventID   model.EventID   `json:"eventId"`
	SessionID model.SessionID `json:"sessionId"`
	ActorID   model.ActorID   `json:"actorId"`
	Role      model.Role      `json:"role"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

func toEventResponse(e *model.MemoryEvent) *eventResponse {
	return &eventResponse{
		EventID:   e.ID,
		SessionID: e.SessionID,
		ActorID:   e.ActorID,
		Role:      e.Role,
		Content:   e.Content,
		Timestamp: e.Timestamp.Format(timeFormat),
		Metadata:  e.Metadata,
	}
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00" // RFC3339Nano

type createSessionRequest struct {
	ActorID model.ActorID `json:"actorId"`
	Title   string        `json:"title"`
	Tags    []string      `json:"tags"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ActorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actorId is required")
	}

	session, err := s.memory.CreateSession(c.Request().Context(), &memory.CreateSessionInput{
		ActorID: req.ActorID,
		Title:   req.Title,
		Tags:    req.Tags,
	})
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (s *Server) getSession(c echo.Context) error {
	session, err := s.memory.GetSession(c.Request().Context(),
		model.SessionID(c.Param("id")), model.ActorID(c.QueryParam("actorId")))
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (s *Server) listSessions(c echo.Context) error {
	limit, err := intQueryParam(c, "limit")
	if err != nil {
		return err
	}

	actorID := model.ActorID(c.QueryParam("actorId"))
	if actorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actorId is required")
	}

	sessions, err := s.memory.ListSessions(c.Request().Context(), actorID, limit)
	if err != nil {
		return usecaseError(c, err)
	}

	resp := make([]*sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, toSessionResponse(session))
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": resp})
}

func (s *Server) deleteSession(c echo.Context) error {
	deleted, err := s.memory.DeleteSession(c.Request().Context(), model.SessionID(c.Param("id")))
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": deleted})
}

type createEventRequest struct {
	SessionID model.SessionID `json:"sessionId"`
	ActorID   model.ActorID   `json:"actorId"`
	Role      model.Role      `json:"role"`
	Content   string          `json:"content"`
	Metadata  map[string]any  `json:"metadata"`
}

func (s *Server) createEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || req.ActorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId and actorId are required")
	}

	event, err := s.memory.CreateEvent(c.Request().Context(), &memory.CreateEventInput{
		SessionID: req.SessionID,
		ActorID:   req.ActorID,
		Role:      req.Role,
		Content:   req.Content,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResponse(event))
}

func (s *Server) getEvents(c echo.Context) error {
	limit, err := intQueryParam(c, "limit")
	if err != nil {
		return err
	}

	sessionID := model.SessionID(c.QueryParam("sessionId"))
	actorID := model.ActorID(c.QueryParam("actorId"))
	if sessionID == "" && actorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId or actorId is required")
	}

	events, err := s.memory.GetEvents(c.Request().Context(), &memory.GetEventsInput{
		SessionID: sessionID,
		ActorID:   actorID,
		Limit:     limit,
	})
	if err != nil {
		return usecaseError(c, err)
	}

	resp := make([]*eventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, toEventResponse(event))
	}
	return c.JSON(http.StatusOK, map[string]any{"events": resp})
}

type indexDocumentRequest struct {
	ID       model.DocumentID `json:"id"`
	Content  string           `json:"content"`
	Metadata map[string]any   `json:"metadata"`
}

func (s *Server) indexDocument(c echo.Context) error {
	var req indexDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	doc, err := s.search.Index(c.Request().Context(), &search.IndexInput{
		ID:       req.ID,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": doc.ID})
}

type searchRequest struct {
	Query         string   `json:"query"`
	Limit         int      `json:"limit"`
	MinScore      *float64 `json:"minScore"`
	IncludeScores bool     `json:"includeScores"`
}

type searchResult struct {
	ID       model.DocumentID `json:"id"`
	Content  string           `json:"content"`
	Score    *float64         `json:"score,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

func (s *Server) searchDocuments(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ranked, err := s.search.SearchScored(c.Request().Context(), &search.QueryInput{
		Query:    req.Query,
		Limit:    req.Limit,
		MinScore: req.MinScore,
	})
	if err != nil {
		return usecaseError(c, err)
	}

	results := make([]*searchResult, 0, len(ranked))
	for _, r := range ranked {
		item := &searchResult{
			ID:       r.Document.ID,
			Content:  r.Document.Content,
			Metadata: r.Document.Metadata,
		}
		if req.IncludeScores {
			score := r.Score
			item.Score = &score
		}
		results = append(results, item)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

type chatRequest struct {
	SessionID model.SessionID `json:"sessionId"`
	ActorID   model.ActorID   `json:"actorId"`
	Message   string          `json:"message"`
}

func (s *Server) sendChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.SessionID == "" || req.ActorID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId, actorId and message are required")
	}

	reply, err := s.chat.Send(c.Request().Context(), &chat.SendInput{
		SessionID: req.SessionID,
		ActorID:   req.ActorID,
		Message:   req.Message,
	})
	if err != nil {
		return usecaseError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(reply))
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}

	var v int
	if err := echo.QueryParamsBinder(c).Int(name, &v).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

// usecaseError maps domain failures to HTTP status codes. Requests are
// validated before reaching the usecases, so remaining failures are
// either known domain errors or backend trouble.
func usecaseError(c echo.Context, err error) error {
	logging.From(c.Request().Context()).Warn("request failed", "error", err)

	if errors.Is(err, model.ErrInvalidRole) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, vector.ErrDimensionMismatch) {
		return echo.NewHTTPError(http.StatusInternalServerError, "embedding dimension mismatch")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
