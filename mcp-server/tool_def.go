package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"screensolver/shared"
)

type DeleteCaptureArgs struct {
	ID string
}

func (s *Server) addTool(def openai.FunctionDefinition, handler server.ToolHandlerFunc) {
	tool, err := shared.ConvertToMcpTool(def)
	if err != nil {
		return
	}
	s.mcp.AddTool(tool, handler)
}

func noArgsSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{},
	}
}

func (s *Server) registerTakeCapture() {
	def := openai.FunctionDefinition{
		Name:        "take_capture",
		Description: "Take a screenshot through the configured capture source and queue it for the current workflow phase.",
		Parameters:  noArgsSchema(),
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c, err := s.orc.TakeCapture(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("captured %s", c.ID)), nil
	}
	s.addTool(def, handler)
}

func (s *Server) registerSolve() {
	def := openai.FunctionDefinition{
		Name:        "solve",
		Description: "Start the extract-and-solve pipeline over the queued captures. Progress arrives as events; poll get_state for the result.",
		Parameters:  noArgsSchema(),
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.orc.Solve()
		return mcp.NewToolResultText("solve started"), nil
	}
	s.addTool(def, handler)
}

func (s *Server) registerDebug() {
	def := openai.FunctionDefinition{
		Name:        "debug",
		Description: "Run the two-stage debug correction using the debug-phase captures and the current solution.",
		Parameters:  noArgsSchema(),
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.orc.Debug()
		return mcp.NewToolResultText("debug started"), nil
	}
	s.addTool(def, handler)
}

func (s *Server) registerDeleteCapture() {
	def := openai.FunctionDefinition{
		Name:        "delete_capture",
		Description: "Remove a queued capture by id and delete its file.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"ID": {
					Type:        jsonschema.String,
					Description: "The capture id as reported by take_capture or get_state.",
				},
			},
			Required: []string{"ID"},
		},
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args DeleteCaptureArgs
		if err := request.BindArguments(&args); err != nil {
			return nil, err
		}
		s.orc.DeleteCapture(args.ID)
		return mcp.NewToolResultText(fmt.Sprintf("delete requested for %s", args.ID)), nil
	}
	s.addTool(def, handler)
}

func (s *Server) registerReset() {
	def := openai.FunctionDefinition{
		Name:        "reset",
		Description: "Cancel in-flight work, clear the stores and both capture queues, and return to the queue phase.",
		Parameters:  noArgsSchema(),
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.orc.Reset()
		return mcp.NewToolResultText("reset requested"), nil
	}
	s.addTool(def, handler)
}

type captureState struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type eventState struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
	ErrKind string `json:"err_kind,omitempty"`
}

type workflowState struct {
	Phase         string          `json:"phase"`
	Problem       json.RawMessage `json:"problem,omitempty"`
	Solution      json.RawMessage `json:"solution,omitempty"`
	Captures      []captureState  `json:"captures"`
	DebugCaptures []captureState  `json:"debug_captures"`
	Events        []eventState    `json:"events"`
}

func (s *Server) registerGetState() {
	def := openai.FunctionDefinition{
		Name:        "get_state",
		Description: "Return the current phase, stored problem and solution, queued captures, and recent events as JSON.",
		Parameters:  noArgsSchema(),
	}
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		state := workflowState{
			Phase:         string(s.orc.Phase()),
			Captures:      []captureState{},
			DebugCaptures: []captureState{},
			Events:        []eventState{},
		}
		if p := s.orc.Problem(); p != nil {
			if data, err := json.Marshal(p); err == nil {
				state.Problem = data
			}
		}
		if sol := s.orc.Solution(); sol != nil {
			if data, err := json.Marshal(sol); err == nil {
				state.Solution = data
			}
		}
		for _, c := range s.orc.Captures() {
			state.Captures = append(state.Captures, captureState{ID: c.ID, CreatedAt: c.CreatedAt.Format(time.RFC3339)})
		}
		for _, c := range s.orc.DebugCaptures() {
			state.DebugCaptures = append(state.DebugCaptures, captureState{ID: c.ID, CreatedAt: c.CreatedAt.Format(time.RFC3339)})
		}
		for _, ev := range s.recentEvents() {
			state.Events = append(state.Events, eventState{
				Kind:    string(ev.Kind),
				Message: ev.Message,
				ErrKind: string(ev.ErrKind),
			})
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	s.addTool(def, handler)
}
