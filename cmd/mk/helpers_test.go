// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkrun/mk/internal/config"
	"github.com/mkrun/mk/internal/testutil"
)

// staticProvider returns a copy of a fixed settings value, keeping tests
// away from the user's settings files.
type staticProvider struct {
	cfg *config.Config
	err error
}

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if p.err != nil {
		return nil, p.err
	}
	c := *p.cfg
	return &c, nil
}

func newTestApp(t *testing.T) (app *App, stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	app = NewApp(Dependencies{
		Config: staticProvider{cfg: config.DefaultConfig()},
		Stdin:  strings.NewReader(""),
		Stdout: stdout,
		Stderr: stderr,
	})
	return app, stdout, stderr
}

func executeCommand(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func writeTaskfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testutil.MustWriteFile(t, path, content)
	return path
}

const sampleTaskfile = `
build:
  description: Compile everything
  commands:
    - command: echo built
test:
  depends_on: [build]
  commands:
    - command: echo tested
    - task: lint
lint: echo linted
fail:
  commands:
    - command: exit 3
`
