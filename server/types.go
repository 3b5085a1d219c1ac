package server

import (
	statex "github.com/calplan/calplan/agent/state"
)

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID      string               `json:"session_id"`
	Response       string               `json:"response"`
	MeetingDetails *statex.MeetingSlots `json:"meeting_details,omitempty"`
	Status         statex.Phase         `json:"status"`
}

type SessionResponse struct {
	SessionID      string               `json:"session_id"`
	Messages       []statex.Message     `json:"messages"`
	MeetingDetails *statex.MeetingSlots `json:"meeting_details,omitempty"`
	Status         statex.Phase         `json:"status"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	MCPServer string `json:"mcp_server"`
	Calendar  string `json:"calendar"`
}
