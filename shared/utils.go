package shared

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
)

// ConvertToMcpTool turns an OpenAI function definition into an MCP tool so the
// same schema types describe both the model-facing and host-facing surfaces.
func ConvertToMcpTool(def openai.FunctionDefinition) (mcp.Tool, error) {
	data, err := json.Marshal(def.Parameters)
	if err != nil {
		return mcp.Tool{}, err
	}

	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, data)
	return tool, nil
}
