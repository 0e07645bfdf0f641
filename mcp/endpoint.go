package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/edumentor"
	"github.com/flarexio/edumentor/llm"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `EduMentor is a study tutor backed by the student's own indexed material (JEE Main, JEE Advanced, NEET).

Available tools:
- search_material: find the passages of the indexed PDFs closest to a query, with title, source and page
- ask_tutor: answer a question from the retrieved passages, structured as a worked solution

Questions such as "summarize this pdf" or "what topics are covered" return an overview of the indexed documents.`

const (
	ToolSearchMaterial = "search_material"
	ToolAskTutor       = "ask_tutor"
)

var Tools = []mcp.Tool{
	mcp.NewTool(ToolSearchMaterial,
		mcp.WithDescription("Search the indexed study material and return the closest passages with their citations."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of passages to return (1-10)"),
			mcp.Min(1),
			mcp.Max(edumentor.MaxTopK),
		),
	),
	mcp.NewTool(ToolAskTutor,
		mcp.WithDescription("Answer a question using the indexed study material, classified as definition, derivation, numerical or conceptual."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The student's question"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of passages to retrieve (1-10)"),
			mcp.Min(1),
			mcp.Max(edumentor.MaxTopK),
		),
		mcp.WithString("exam_focus",
			mcp.Description("Exam the answer is tailored to"),
			mcp.Enum(string(edumentor.JEEMain), string(edumentor.JEEAdvanced), string(edumentor.NEET)),
		),
	),
}

func InitializeEndpoint(svc edumentor.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "edumentor",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc edumentor.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{},
		}
	}
}

func ListToolsEndpoint(svc edumentor.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type searchMaterialArgs struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type askTutorArgs struct {
	Question  string              `json:"question"`
	K         int                 `json:"k"`
	ExamFocus edumentor.ExamFocus `json:"exam_focus"`
}

func decodeArguments(arguments any, v any) error {
	bs, err := json.Marshal(arguments)
	if err != nil {
		return err
	}

	return json.Unmarshal(bs, v)
}

func CallToolEndpoint(svc edumentor.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var result *mcp.CallToolResult

		switch params.Name {
		case ToolSearchMaterial:
			var args searchMaterialArgs
			if err := decodeArguments(params.Arguments, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			if strings.TrimSpace(args.Query) == "" {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "query is required")
			}

			results, err := svc.Search(ctx, args.Query, edumentor.ClampTopK(args.K))
			if err != nil {
				result = mcp.NewToolResultError(err.Error())
				break
			}

			if len(results) == 0 {
				result = mcp.NewToolResultText(edumentor.NoIndexedContentMessage)
				break
			}

			var b strings.Builder
			for i, r := range results {
				fmt.Fprintf(&b, "[%d] %s (distance %.4f)\n%s\n\n", i+1, llm.Citation(r.Chunk.Metadata), r.Distance, r.Chunk.Text)
			}

			result = mcp.NewToolResultText(strings.TrimSpace(b.String()))

		case ToolAskTutor:
			var args askTutorArgs
			if err := decodeArguments(params.Arguments, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			if strings.TrimSpace(args.Question) == "" {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "question is required")
			}

			answer, err := svc.Ask(ctx, args.Question, edumentor.ClampTopK(args.K), args.ExamFocus)
			if err != nil {
				result = mcp.NewToolResultError(err.Error())
				break
			}

			text := answer.Text
			if len(answer.Sources) > 0 {
				citations := make([]string, len(answer.Sources))
				for i, c := range answer.Sources {
					citations[i] = "- " + llm.Citation(c.Metadata)
				}

				text += "\n\nSources:\n" + strings.Join(citations, "\n")
			}

			result = mcp.NewToolResultText(text)

		default:
			return ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "tool not found: "+params.Name)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}
