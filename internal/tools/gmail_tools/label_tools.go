package gmail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/server"
	"gmailbridge/internal/tools/batch"
	"gmailbridge/internal/tools/common"
)

// stateChangeTool describes a tool that flips message state over one or
// many message ids.
type stateChangeTool struct {
	name        string
	description string
	done        string
	apply       func(ctx context.Context, c *gmail.Client, id string) error
}

var stateChangeTools = []stateChangeTool{
	{
		name:        "gmail_mark_as_read",
		description: "Mark one or more Gmail messages as read",
		done:        "marked as read",
		apply: func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsRead(ctx, id)
		},
	},
	{
		name:        "gmail_mark_as_unread",
		description: "Mark one or more Gmail messages as unread",
		done:        "marked as unread",
		apply: func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsUnread(ctx, id)
		},
	},
	{
		name:        "gmail_mark_as_spam",
		description: "Mark one or more Gmail messages as spam",
		done:        "marked as spam",
		apply: func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MarkAsSpam(ctx, id)
		},
	},
	{
		name:        "gmail_move_to_trash",
		description: "Move one or more Gmail messages to the trash",
		done:        "moved to trash",
		apply: func(ctx context.Context, c *gmail.Client, id string) error {
			return c.MoveToTrash(ctx, id)
		},
	},
	{
		name:        "gmail_add_star",
		description: "Add a star to one or more Gmail messages",
		done:        "starred",
		apply: func(ctx context.Context, c *gmail.Client, id string) error {
			return c.AddStar(ctx, id)
		},
	},
}

// registerLabelTools registers the label listing and modification tools and
// the label-backed state change tools.
func registerLabelTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	for _, tool := range stateChangeTools {
		tool := tool
		t := mcp.NewTool(tool.name,
			mcp.WithDescription(tool.description),
			mcp.WithString("messageIds",
				mcp.Required(),
				mcp.Description("Message ID (string) or array of message IDs"),
			),
		)
		s.AddTool(t, common.InstrumentedToolHandler(tool.name, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleStateChange(ctx, request, sc, tool)
			}))
	}

	listLabelsTool := mcp.NewTool("gmail_list_labels",
		mcp.WithDescription("List all labels in the Gmail account"),
	)
	s.AddTool(listLabelsTool, common.InstrumentedToolHandler("gmail_list_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListLabels(ctx, request, sc)
		}))

	modifyLabelsTool := mcp.NewTool("gmail_modify_labels",
		mcp.WithDescription("Add or remove labels on one or more Gmail messages"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
		mcp.WithString("addLabels",
			mcp.Description("Label ID (string) or array of label IDs to add"),
		),
		mcp.WithString("removeLabels",
			mcp.Description("Label ID (string) or array of label IDs to remove"),
		),
	)
	s.AddTool(modifyLabelsTool, common.InstrumentedToolHandler("gmail_modify_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleModifyLabels(ctx, request, sc)
		}))

	return nil
}

func handleStateChange(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, tool stateChangeTool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var results []batch.Result
	err = sc.WithClient(ctx, func(c *gmail.Client) error {
		results = batch.ProcessBatch(ids, func(id string) (string, error) {
			if aerr := tool.apply(ctx, c, id); aerr != nil {
				return "", aerr
			}
			return fmt.Sprintf("Message %s %s", id, tool.done), nil
		})
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update messages: %v", err)), nil
	}

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleListLabels(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	var labels []*gmail.LabelInfo
	err := sc.WithClient(ctx, func(c *gmail.Client) error {
		var lerr error
		labels, lerr = c.ListLabels(ctx)
		return lerr
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d labels:\n\n", len(labels))
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s (id: %s, type: %s)\n", label.Name, label.ID, label.Type)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleModifyLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var add, remove []string
	if args["addLabels"] != nil {
		add, err = batch.ParseStringOrArray(args["addLabels"], "addLabels")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if args["removeLabels"] != nil {
		remove, err = batch.ParseStringOrArray(args["removeLabels"], "removeLabels")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if len(add) == 0 && len(remove) == 0 {
		return mcp.NewToolResultError("at least one of addLabels or removeLabels is required"), nil
	}

	var results []batch.Result
	err = sc.WithClient(ctx, func(c *gmail.Client) error {
		results = batch.ProcessBatch(ids, func(id string) (string, error) {
			if merr := c.ModifyLabels(ctx, id, add, remove); merr != nil {
				return "", merr
			}
			return fmt.Sprintf("Labels updated on message %s", id), nil
		})
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to modify labels: %v", err)), nil
	}

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
