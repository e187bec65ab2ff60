package tool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const maxManifestBytes = 1 << 20

// ProjectTool detects project kinds and dependencies from the manifest files
// at the top of a directory.
type ProjectTool struct {
	engine *security.Engine
	logger *slog.Logger
}

func NewProjectTool(engine *security.Engine, logger *slog.Logger) *ProjectTool {
	return &ProjectTool{engine: engine, logger: logger}
}

func (t *ProjectTool) Kind() domain.OperationKind { return domain.OpProject }
func (t *ProjectTool) Description() string {
	return "Detect the project type and declared dependencies of a directory."
}

func (t *ProjectTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	out := t.engine.ValidatePath(req.Arg)
	if err := out.Err(req.Arg); err != nil {
		return nil, err
	}
	dir := out.Value

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: %s is not a directory", dir)
	}

	files := map[string][]byte{}
	for _, name := range report.ManifestNames() {
		p := filepath.Join(dir, name)
		if !t.engine.ValidateReadable(p).Allowed {
			continue
		}
		data, err := readManifest(p)
		if err != nil {
			t.logger.Debug("manifest unreadable", "path", p, "error", err)
			continue
		}
		if data != nil {
			files[name] = data
		}
	}
	return report.DetectProject(dir, files), nil
}

// readManifest returns nil, nil when p is absent or not a regular file.
func readManifest(p string) ([]byte, error) {
	info, err := os.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxManifestBytes))
}
