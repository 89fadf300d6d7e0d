// Package automation executes the system actions the assistant proposes:
// application control, file operations, and a small allowlisted command
// runner.
package automation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
	"github.com/aria-ai/aria/internal/provider"
)

// commandTimeout bounds every spawned process.
const commandTimeout = 30 * time.Second

// maxSearchResults caps the file search result list.
const maxSearchResults = 50

// Result is the outcome of one executed action. Failures are reported inside
// the result; Execute itself never panics or errors.
type Result struct {
	Success bool           `json:"success"`
	Output  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type actionHandler func(ctx context.Context, params map[string]any, userID string) (map[string]any, error)

// Engine dispatches assistant actions to their handlers.
type Engine struct {
	handlers        map[string]actionHandler
	allowedCommands map[string]bool

	log zerolog.Logger
}

// NewEngine creates an automation engine. allowedCommands is the run_command
// allowlist; an empty slice disables run_command entirely.
func NewEngine(allowedCommands []string, log zerolog.Logger) *Engine {
	allowed := make(map[string]bool, len(allowedCommands))
	for _, c := range allowedCommands {
		allowed[c] = true
	}

	e := &Engine{
		allowedCommands: allowed,
		log:             log.With().Str("component", "automation").Logger(),
	}
	e.handlers = map[string]actionHandler{
		"open_app":     e.openApp,
		"close_app":    e.closeApp,
		"create_file":  e.createFile,
		"delete_file":  e.deleteFile,
		"search_files": e.searchFiles,
		"system_info":  e.systemInfo,
		"run_command":  e.runCommand,
	}
	return e
}

// SupportedActions returns the action kinds the engine can execute.
func (e *Engine) SupportedActions() []string {
	kinds := make([]string, 0, len(e.handlers))
	for kind := range e.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Execute runs one action for the user. The error is always carried inside
// the Result.
func (e *Engine) Execute(ctx context.Context, action provider.Action, userID string) *Result {
	handler, ok := e.handlers[action.Kind]
	if !ok {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("Unsupported action type: %s", action.Kind),
		}
	}

	output, err := handler(ctx, action.Params, userID)
	if err != nil {
		e.log.Error().Err(err).Str("action", action.Kind).Str("user", userID).Msg("action failed")
		return &Result{Success: false, Error: err.Error()}
	}

	e.log.Info().Str("action", action.Kind).Str("user", userID).Msg("action executed")
	return &Result{Success: true, Output: output}
}

// ============================================================
// ACTION HANDLERS
// ============================================================

func (e *Engine) openApp(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, errors.New(errors.CodeActionFailed, "application name required", errors.CategoryUser)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", name)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", name)
	default:
		cmd = exec.CommandContext(ctx, name)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, fmt.Sprintf("failed to open %s", name), errors.CategorySystem)
	}
	// Detach: the app keeps running after we return.
	go cmd.Wait()

	return map[string]any{"message": fmt.Sprintf("Opened %s", name)}, nil
}

func (e *Engine) closeApp(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, errors.New(errors.CodeActionFailed, "application name required", errors.CategoryUser)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "taskkill", "/IM", name+".exe", "/F")
	default:
		cmd = exec.CommandContext(ctx, "pkill", "-f", name)
	}

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, fmt.Sprintf("application %s not found", name), errors.CategorySystem)
	}

	return map[string]any{"message": fmt.Sprintf("Closed %s", name)}, nil
}

func (e *Engine) createFile(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	path := stringParam(params, "path")
	if path == "" {
		return nil, errors.New(errors.CodeActionFailed, "file path required", errors.CategoryUser)
	}
	content := stringParam(params, "content")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, "failed to create parent directory", errors.CategorySystem)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, "failed to create file", errors.CategorySystem)
	}

	return map[string]any{"message": fmt.Sprintf("Created file: %s", path)}, nil
}

func (e *Engine) deleteFile(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	path := stringParam(params, "path")
	if path == "" {
		return nil, errors.New(errors.CodeActionFailed, "file path required", errors.CategoryUser)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, fmt.Sprintf("file not found: %s", path), errors.CategoryUser)
	}
	if info.IsDir() {
		return nil, errors.New(errors.CodeActionFailed, "refusing to delete a directory", errors.CategoryUser)
	}

	if err := os.Remove(path); err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, "failed to delete file", errors.CategorySystem)
	}

	return map[string]any{"message": fmt.Sprintf("Deleted file: %s", path)}, nil
}

func (e *Engine) searchFiles(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	query := stringParam(params, "query")
	if query == "" {
		return nil, errors.New(errors.CodeActionFailed, "search query required", errors.CategoryUser)
	}
	dir := stringParam(params, "directory")
	if dir == "" {
		dir = "."
	}

	lowerQuery := strings.ToLower(query)
	var results []map[string]any
	count := 0

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.Contains(strings.ToLower(d.Name()), lowerQuery) {
			return nil
		}

		count++
		if len(results) < maxSearchResults {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			results = append(results, map[string]any{
				"path":     path,
				"name":     d.Name(),
				"size":     info.Size(),
				"modified": info.ModTime().Unix(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeActionFailed, "file search failed", errors.CategorySystem)
	}

	return map[string]any{"results": results, "count": count}, nil
}

func (e *Engine) systemInfo(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return map[string]any{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpu_count":  runtime.NumCPU(),
		"go_version": runtime.Version(),
		"hostname":   host,
	}, nil
}

func (e *Engine) runCommand(ctx context.Context, params map[string]any, userID string) (map[string]any, error) {
	command := stringParam(params, "command")
	if command == "" {
		return nil, errors.New(errors.CodeActionFailed, "command required", errors.CategoryUser)
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, errors.New(errors.CodeActionFailed, "command required", errors.CategoryUser)
	}
	base := parts[0]
	if !e.allowedCommands[base] {
		return nil, errors.New(errors.CodeCommandBlocked, fmt.Sprintf("Command not allowed: %s", base), errors.CategoryUser)
	}

	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, base, parts[1:]...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, errors.New(errors.CodeActionFailed, "command execution timed out", errors.CategoryTemporary)
	}

	returnCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			returnCode = exitErr.ExitCode()
		} else {
			return nil, errors.Wrap(runErr, errors.CodeActionFailed, "command execution failed", errors.CategorySystem)
		}
	}

	return map[string]any{
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"return_code": returnCode,
	}, nil
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	v, _ := params[key].(string)
	return v
}
