package common

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/logging"
	"gmailbridge/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics, and
// per-call logging. Each invocation is tagged with a correlation id so log
// lines from one tool call can be grouped.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		correlationID := uuid.NewString()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		result, err := handler(ctx, request)
		duration := time.Since(start)

		// A handler error and an error-shaped result are both failures
		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}

		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else if status == instrumentation.StatusSuccess {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.Logger().Info("tool invocation",
			logging.Tool(toolName),
			logging.Status(status),
			logging.CorrelationID(correlationID),
			logging.TraceID(instrumentation.GetTraceID(ctx)),
			logging.Err(err),
		)

		return result, err
	}
}
