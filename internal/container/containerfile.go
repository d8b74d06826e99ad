// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// containerfileNames are probed in order inside a build context.
var containerfileNames = []string{"Dockerfile", "Containerfile"}

// ErrContainerfileNotFound is the sentinel wrapped by ContainerfileNotFoundError.
var ErrContainerfileNotFound = errors.New("no Dockerfile or Containerfile found")

// ContainerfileNotFoundError reports a build context without a containerfile.
type ContainerfileNotFoundError struct {
	Context string
}

func (e *ContainerfileNotFoundError) Error() string {
	return fmt.Sprintf("%s in build context %q", ErrContainerfileNotFound, e.Context)
}

func (e *ContainerfileNotFoundError) Unwrap() error {
	return ErrContainerfileNotFound
}

// DetectContainerfile returns the containerfile path to pass to the engine.
// An explicit path is returned unchanged. Otherwise context/Dockerfile and
// then context/Containerfile are probed, with relative contexts resolved
// against dir.
func DetectContainerfile(dir, contextDir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	for _, name := range containerfileNames {
		candidate := filepath.Join(contextDir, name)
		probe := candidate
		if !filepath.IsAbs(probe) && dir != "" {
			probe = filepath.Join(dir, probe)
		}
		if info, err := os.Stat(probe); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", &ContainerfileNotFoundError{Context: contextDir}
}
