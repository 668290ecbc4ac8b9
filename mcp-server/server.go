// Package mcpserver exposes the workflow commands as MCP tools over stdio so
// presentation hosts (editor plugins, overlay UIs) can drive the pipeline.
package mcpserver

import (
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"screensolver/workflow"
)

const maxRecentEvents = 32

type Server struct {
	mcp *server.MCPServer
	orc *workflow.Orchestrator

	mu     sync.Mutex
	events []workflow.Event // ring of recent notifications for get_state
}

func NewServer(orc *workflow.Orchestrator) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"screensolver",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
		orc: orc,
	}
	orc.Subscribe(s.recordEvent)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the client disconnects.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) recordEvent(ev workflow.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > maxRecentEvents {
		s.events = s.events[len(s.events)-maxRecentEvents:]
	}
}

func (s *Server) recentEvents() []workflow.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]workflow.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Server) registerTools() {
	s.registerTakeCapture()
	s.registerSolve()
	s.registerDebug()
	s.registerDeleteCapture()
	s.registerReset()
	s.registerGetState()
}
