package tool

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"minibot/internal/domain"
)

const (
	defaultShellTimeout   = 30
	defaultMaxOutputBytes = 65536
)

// ShellTool executes commands through `sh -c` in the workspace directory.
type ShellTool struct {
	workingDir     string
	timeoutSeconds int
	maxOutputBytes int
}

type ShellConfig struct {
	WorkingDir     string
	TimeoutSeconds int
	MaxOutputBytes int
}

func NewShellTool(cfg ShellConfig) *ShellTool {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultShellTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	return &ShellTool{
		workingDir:     cfg.WorkingDir,
		timeoutSeconds: cfg.TimeoutSeconds,
		maxOutputBytes: cfg.MaxOutputBytes,
	}
}

func (s *ShellTool) Name() string { return "shell" }

func (s *ShellTool) Description() string {
	return "Execute a shell command. Use for running terminal commands, scripts, or any CLI tool. Returns stdout and stderr."
}

func (s *ShellTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"command": {Type: "string", Description: "The shell command to execute (e.g. 'ls -la', 'git status')"},
		},
		[]string{"command"},
	)
}

func (s *ShellTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	command := strings.TrimSpace(ArgString(args, "command"))
	if command == "" {
		return "", fmt.Errorf("missing argument: command")
	}

	dir := s.workingDir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutSeconds)*time.Second)
	defer cancel()

	// sh -c handles pipes, redirects, and quoting.
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = absDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return "", fmt.Errorf("command timed out or cancelled")
		}
		return fmt.Sprintf("%s\n(exit error: %s)", string(output), err.Error()), nil
	}

	result := string(output)
	if len(result) > s.maxOutputBytes {
		result = result[:s.maxOutputBytes] + "\n... (output truncated)"
	}
	return result, nil
}

var _ domain.Tool = (*ShellTool)(nil)
