package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"compasseval/internal/runner"
)

// UploadRun uploads results.json and report.html to <run_id>/ and returns
// the remote paths written.
func UploadRun(ctx context.Context, provider Provider, paths runner.OutputPaths) ([]string, error) {
	files := paths.Artifacts()
	uploaded := make([]string, 0, len(files))
	for _, local := range files {
		remote := path.Join(paths.RunID, filepath.Base(local))
		if err := uploadFile(ctx, provider, local, remote); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, remote)
	}
	return uploaded, nil
}

func uploadFile(ctx context.Context, provider Provider, local, remote string) error {
	file, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(local), err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(local), err)
	}
	return provider.Upload(ctx, file, info.Size(), remote)
}
