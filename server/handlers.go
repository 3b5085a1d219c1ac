package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
	"github.com/calplan/calplan/agent/orchestrator"
	statex "github.com/calplan/calplan/agent/state"
	"github.com/calplan/calplan/calendar"
)

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	log.Info().Str("session_id", req.SessionID).Msg("chat turn received")

	result, err := s.orc.HandleTurn(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidMessage) || errors.Is(err, orchestrator.ErrInvalidSession) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Agent error: " + err.Error()})
		return
	}

	resp := ChatResponse{
		SessionID: result.SessionID,
		Response:  result.Reply,
		Status:    result.Phase,
	}
	if hasMeetingDetails(result.Slots) {
		slots := result.Slots
		resp.MeetingDetails = &slots
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, statex.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	resp := SessionResponse{
		SessionID: sess.ID,
		Messages:  sess.Messages,
		Status:    sess.Phase,
	}
	if resp.Messages == nil {
		resp.Messages = []statex.Message{}
	}
	if sess.Slots.HasAny() {
		slots := sess.Slots.Clone()
		resp.MeetingDetails = &slots
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Delete(c.Request.Context(), id); err != nil && !errors.Is(err, statex.ErrSessionNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	log.Info().Str("session_id", id).Msg("session cleared")
	c.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
}

func (s *Server) handleListMeetings(c *gin.Context) {
	if !s.tools.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Calendar service unavailable"})
		return
	}

	result := s.tools.CallTool(c.Request.Context(), contractx.ToolListMeetings, map[string]any{
		"max_results": 10,
	})
	if msg, failed := contractx.ErrorOf(result); failed {
		c.JSON(http.StatusBadGateway, gin.H{"detail": msg})
		return
	}

	events := make([]calendar.Event, 0)
	if list, ok := result.([]any); ok {
		// round-trip through JSON to get typed events out of the payload
		raw, err := json.Marshal(list)
		if err == nil {
			_ = json.Unmarshal(raw, &events)
		}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleAvailability(c *gin.Context) {
	date := c.Query("date")
	startTime := c.Query("start_time")
	endTime := c.Query("end_time")
	if date == "" || startTime == "" || endTime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "date, start_time and end_time are required"})
		return
	}

	result := s.tools.CallTool(c.Request.Context(), contractx.ToolCheckAvailability, map[string]any{
		"date":       date,
		"start_time": startTime,
		"end_time":   endTime,
		"timezone":   c.Query("timezone"),
	})
	if msg, failed := contractx.ErrorOf(result); failed {
		c.JSON(http.StatusBadGateway, gin.H{"detail": msg})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c *gin.Context) {
	mcpStatus := "disconnected"
	if s.tools.Connected() {
		mcpStatus = "connected"
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		MCPServer: mcpStatus,
		Calendar:  s.calendarMode,
	})
}

func hasMeetingDetails(slots statex.MeetingSlots) bool {
	return slots.Title != "" || slots.Date != "" || slots.StartTime != ""
}
