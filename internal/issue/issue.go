// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	TaskfileNotFoundId Id = iota + 1
	TaskfileParseErrorId
	TaskNotFoundId
	DependencyCycleId
	ContainerEngineNotFoundId
	ContainerfileNotFoundId
	PreconditionFailedId
	CommandFailedId
	ConfigLoadFailedId
	ShellNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown with the given glamour
// style ("dark", "light", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	taskfileNotFoundIssue = &Issue{
		id: TaskfileNotFoundId,
		mdMsg: `
# No task file found!

mk looks for ` + "`tasks.yaml`" + ` in the current directory unless told otherwise.

## Things you can try:
- Point mk at your task file:
~~~
$ mk -c build/tasks.toml list
~~~

- Or set it once for the shell session:
~~~
$ export MK_CONFIG=build/tasks.cue
~~~

- Supported formats: YAML, JSON, TOML, CUE and Lua.`,
	}

	taskfileParseErrorIssue = &Issue{
		id: TaskfileParseErrorId,
		mdMsg: `
# Failed to parse the task file!

The task file has a syntax error or does not match the task file schema.

## Things you can try:
- Check the line and field named in the error above
- Every task needs a non-empty ` + "`commands`" + ` list, or must be a single command string
- A command entry uses exactly one of ` + "`command`" + `, ` + "`container_command`" + `, ` + "`container_build`" + ` or ` + "`task`" + `
- Included files must exist relative to the file that includes them`,
	}

	taskNotFoundIssue = &Issue{
		id: TaskNotFoundId,
		mdMsg: `
# Task not found!

A task you asked for, or a task referenced by ` + "`depends_on`" + ` or a ` + "`task`" + ` command, is not declared.

## Things you can try:
- List the declared tasks:
~~~
$ mk list
~~~

- Check for typos in ` + "`depends_on`" + ` entries and ` + "`task:`" + ` commands
- If the task lives in another file, add it to ` + "`include`",
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Tasks depend on each other in a loop, so no order can satisfy them. Nothing was run.

## Things you can try:
- Follow the path printed above and remove one edge of the loop
- Move shared steps into a separate task that both sides depend on
- A ` + "`task`" + ` command that calls back into a task already running is a cycle too; ` + "`ignore_errors`" + ` cannot absorb it`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

A task runs a container command or builds an image, but neither Docker nor Podman is usable.

## Things you can try:
- Install Docker or Podman and make sure the daemon or socket is running
- Check that the engine works on its own:
~~~
$ docker version
$ podman version
~~~

- Choose the engine explicitly:
~~~
$ mk --engine podman run build
~~~`,
		extLinks: []HttpLink{
			"https://docs.docker.com/engine/install/",
			"https://podman.io/docs/installation",
		},
	}

	containerfileNotFoundIssue = &Issue{
		id: ContainerfileNotFoundId,
		mdMsg: `
# Containerfile not found!

An image build found neither a ` + "`Dockerfile`" + ` nor a ` + "`Containerfile`" + ` in its build context.

## Things you can try:
- Check the ` + "`context`" + ` path of the ` + "`container_build`" + ` command; it is relative to the task file
- Name the file explicitly with ` + "`containerfile: path/to/Containerfile`",
	}

	preconditionFailedIssue = &Issue{
		id: PreconditionFailedId,
		mdMsg: `
# Precondition failed!

A check listed under ` + "`preconditions`" + ` exited non-zero, so the task and everything depending on it was not run.

## Things you can try:
- Run the precondition command by hand to see why it fails
- Preconditions are always fatal; move optional checks into a command with ` + "`ignore_errors: true`",
	}

	commandFailedIssue = &Issue{
		id: CommandFailedId,
		mdMsg: `
# Command failed!

A task command exited with a non-zero status.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the output of every command
- Set ` + "`ignore_errors: true`" + ` on the command or task if the failure is expected
- Use a ` + "`test`" + ` guard to skip the command where it does not apply`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load settings!

The mk settings file could not be read or does not match its schema.

## Things you can try:
- Print the effective settings and where they come from:
~~~
$ mk config show
$ mk config path
~~~

- Write a fresh default file:
~~~
$ mk config init
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The shell a task or command asks for is not installed on this host.

## Things you can try:
- Install the shell, or set ` + "`shell:`" + ` on the task to one that exists
- Use the embedded POSIX shell, which needs nothing installed:
~~~yaml
shell: mk-sh
~~~`,
	}

	issues = map[Id]*Issue{
		taskfileNotFoundIssue.Id():        taskfileNotFoundIssue,
		taskfileParseErrorIssue.Id():      taskfileParseErrorIssue,
		taskNotFoundIssue.Id():            taskNotFoundIssue,
		dependencyCycleIssue.Id():         dependencyCycleIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		containerfileNotFoundIssue.Id():   containerfileNotFoundIssue,
		preconditionFailedIssue.Id():      preconditionFailedIssue,
		commandFailedIssue.Id():           commandFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		shellNotFoundIssue.Id():           shellNotFoundIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
