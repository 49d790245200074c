package git

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
)

// CloneRepository makes a shallow clone of repoURL into destDir. destDir must not exist
// or must be empty.
func CloneRepository(repoURL, destDir string, progress io.Writer) error {
	_, err := git.PlainClone(destDir, false, &git.CloneOptions{
		URL:      repoURL,
		Progress: progress,
		Depth:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}
