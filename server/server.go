package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	contractx "github.com/calplan/calplan/agent/contract"
	"github.com/calplan/calplan/agent/orchestrator"
	statex "github.com/calplan/calplan/agent/state"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8000"`
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" split_words:"true" default:"*"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
}

// Server is the HTTP face of the planner.
type Server struct {
	orc          *orchestrator.Orchestrator
	store        statex.Store
	tools        contractx.ToolInvoker
	calendarMode string
}

func New(orc *orchestrator.Orchestrator, store statex.Store, tools contractx.ToolInvoker, calendarMode string) *Server {
	return &Server{
		orc:          orc,
		store:        store,
		tools:        tools,
		calendarMode: calendarMode,
	}
}

// Router builds the gin engine with all planner routes mounted under /api.
func (s *Server) Router(cfg Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	if cfg.AllowOrigins == "*" {
		corsConf.AllowAllOrigins = true
	} else {
		corsConf.AllowOrigins = splitOrigins(cfg.AllowOrigins)
	}
	corsConf.AllowHeaders = append(corsConf.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConf))

	api := r.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/session/:id", s.handleGetSession)
		api.DELETE("/session/:id", s.handleDeleteSession)
		api.GET("/meetings", s.handleListMeetings)
		api.GET("/availability", s.handleAvailability)
		api.GET("/health", s.handleHealth)
	}

	return r
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
