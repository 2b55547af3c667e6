// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ladle tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ladle/internal/recipeservice"
	"github.com/starford/ladle/internal/semver"
	"github.com/starford/ladle/internal/storage"
)

const contractURI = "ladle://recipe-format"

// Options configures New.
type Options struct {
	// Owner scopes every recipe the tools touch; empty means ownerless.
	Owner string
	// Media stores photos attached with attach_session_photo. When nil
	// the tool is not registered.
	Media  storage.Provider
	Logger *slog.Logger
}

// Server wraps the MCP server with Ladle tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *recipeservice.Service
	owner  string
	media  storage.Provider
	logger *slog.Logger
}

// New creates a new MCP server with all Ladle tools registered.
func New(svc *recipeservice.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, owner: opts.Owner, media: opts.Media, logger: logger}

	s.mcp = server.NewMCPServer(
		"Ladle",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List stored recipes, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Read a recipe version as a canonical recipe document. "+
			"Without version_id the latest version is returned."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Recipe slug (e.g. tomato-soup)")),
		mcp.WithNumber("version_id", mcp.Description("Optional version id")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("search_recipes",
		mcp.WithDescription("Full-text search through recipe names and latest content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecipes)

	s.mcp.AddTool(mcp.NewTool("import_recipe",
		mcp.WithDescription("Extract a recipe from already-fetched webpage text (url + content) "+
			"or from pasted text (source). Repeated imports of the same page are served "+
			"from the import cache."),
		mcp.WithString("url", mcp.Description("Page URL; used as the cache key")),
		mcp.WithString("content", mcp.Description("Visible text of the page")),
		mcp.WithString("language", mcp.Description("Language code of the page (e.g. ko)")),
		mcp.WithString("source", mcp.Description("Pasted recipe text when there is no page")),
		mcp.WithBoolean("save", mcp.Description("Store the result as a new recipe")),
	), s.importRecipe)

	s.mcp.AddTool(mcp.NewTool("voice_command",
		mcp.WithDescription("Apply a transcribed spoken modification to a stored recipe. "+
			"With apply=true the updated recipe is stored as a new version."),
		mcp.WithString("transcription", mcp.Required(), mcp.Description("What the user said")),
		mcp.WithString("recipe_slug", mcp.Required(), mcp.Description("Recipe to modify")),
		mcp.WithNumber("version_id", mcp.Description("Version to modify (default latest)")),
		mcp.WithBoolean("apply", mcp.Description("Store the modification as a new version")),
	), s.voiceCommand)

	s.mcp.AddTool(mcp.NewTool("cooking_guide",
		mcp.WithDescription("Ask the cooking assistant a question about a recipe while cooking."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The cook's question")),
		mcp.WithString("recipe_slug", mcp.Required(), mcp.Description("Recipe being cooked")),
		mcp.WithNumber("current_step", mcp.Description("Zero-based index of the current step")),
		mcp.WithNumber("session_id", mcp.Description("Cooking session to log the exchange to")),
	), s.cookingGuide)

	s.mcp.AddTool(mcp.NewTool("bump_version",
		mcp.WithDescription("Compute the next semantic version for a modification action and intent."),
		mcp.WithString("current", mcp.Required(), mcp.Description("Current version (e.g. 1.2.0)")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Modification action (e.g. scale_recipe)")),
		mcp.WithString("intent", mcp.Description("Modification intent (e.g. SCALE)")),
	), s.bumpVersion)

	s.mcp.AddTool(mcp.NewTool("get_recipe_contract",
		mcp.WithDescription("Returns the canonical Ladle recipe document contract. "+
			"Call this before writing recipe documents to ensure correct structure."),
	), s.getRecipeContract)

	if s.media != nil {
		s.mcp.AddTool(mcp.NewTool("attach_session_photo",
			mcp.WithDescription("Download an image (http/https URL or base64 data URI) and attach "+
				"it to a cooking session."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
			mcp.WithString("recipe_slug", mcp.Required(), mcp.Description("Recipe of the session")),
			mcp.WithNumber("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("filename", mcp.Description("Optional filename hint")),
		), s.attachSessionPhoto)
	}

	// Resource: recipe document contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Recipe Format Contract",
			mcp.WithResourceDescription("Canonical JSON recipe document format that all recipes follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	s.logger.Warn("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error()), nil
}

// optionalID returns a pointer to the integer argument, or nil when absent
// or zero.
func optionalID(req mcp.CallToolRequest, key string) *int64 {
	n := int64(req.GetInt(key, 0))
	if n == 0 {
		return nil
	}
	return &n
}

func (s *Server) listRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListRecipes(ctx, s.owner, req.GetInt("limit", 0), req.GetInt("offset", 0))
	if err != nil {
		return s.toolError("list_recipes", err)
	}
	return jsonResult(map[string]any{"recipes": items, "total": total})
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id := optionalID(req, "version_id"); id != nil {
		v, err := s.svc.GetVersion(ctx, s.owner, slug, *id)
		if err != nil {
			return s.toolError("get_recipe", err)
		}
		return jsonResult(v.Document)
	}
	d, err := s.svc.GetRecipe(ctx, s.owner, slug)
	if err != nil {
		return s.toolError("get_recipe", err)
	}
	if d.Latest == nil {
		return mcp.NewToolResultError(fmt.Sprintf("recipe %s has no versions", slug)), nil
	}
	return jsonResult(d.Latest.Document)
}

func (s *Server) searchRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, s.owner, query, 20)
	if err != nil {
		return s.toolError("search_recipes", err)
	}
	return jsonResult(results)
}

func (s *Server) importRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Import(ctx, s.owner, recipeservice.ImportInput{
		URL:      req.GetString("url", ""),
		Content:  req.GetString("content", ""),
		Language: req.GetString("language", ""),
		Source:   req.GetString("source", ""),
		Save:     req.GetBool("save", false),
		Author:   "mcp",
	})
	if err != nil {
		return s.toolError("import_recipe", err)
	}
	return jsonResult(res)
}

func (s *Server) voiceCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcription, err := req.RequireString("transcription")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("recipe_slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.VoiceCommand(ctx, s.owner, recipeservice.VoiceInput{
		Transcription: transcription,
		RecipeSlug:    slug,
		VersionID:     optionalID(req, "version_id"),
		Apply:         req.GetBool("apply", false),
		Author:        "mcp",
	})
	if err != nil {
		return s.toolError("voice_command", err)
	}
	return jsonResult(res)
}

func (s *Server) cookingGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("recipe_slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reply, err := s.svc.Guide(ctx, s.owner, recipeservice.GuideInput{
		Message:     message,
		RecipeSlug:  slug,
		CurrentStep: req.GetInt("current_step", 0),
		SessionID:   optionalID(req, "session_id"),
	})
	if err != nil {
		return s.toolError("cooking_guide", err)
	}
	return mcp.NewToolResultText(reply.Response), nil
}

func (s *Server) bumpVersion(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current, err := req.RequireString("current")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := semver.Classify(action, req.GetString("intent", ""))
	return jsonResult(map[string]string{
		"bump": string(b),
		"next": semver.Apply(current, b),
	})
}

func (s *Server) getRecipeContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormatContract,
		},
	}, nil
}
