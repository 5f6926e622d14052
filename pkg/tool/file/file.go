package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

// maxReadSize caps how much of a file the read tool returns (256 KiB).
const maxReadSize = 256 << 10

// Workspace confines all file tools to one base directory. Paths are
// resolved relative to it and may not escape it.
type Workspace struct {
	base string
}

func NewWorkspace(base string) *Workspace {
	return &Workspace{base: base}
}

// resolve maps a user-supplied path into the workspace, rejecting escapes.
func (w *Workspace) resolve(raw string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(raw))
	if cleaned == "" || cleaned == "." {
		return w.base, nil
	}
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", goerr.New("path must stay inside the workspace", goerr.V("path", raw))
	}
	return filepath.Join(w.base, cleaned), nil
}

func pathSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"path": {Type: "string", Description: "Path relative to the workspace"},
		},
		Required: []string{"path"},
	}
}

// Read returns the contents of a workspace file.
type Read struct {
	ws *Workspace
}

func NewRead(ws *Workspace) *Read { return &Read{ws: ws} }

func (x *Read) Name() string { return "read_file" }

func (x *Read) Description() string {
	return "Read a file: 'read file notes.txt'"
}

func (x *Read) Schema() *jsonschema.Schema { return pathSchema() }

func (x *Read) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "read file", ArgKey: "path"},
		tool.PrefixRule{Prefix: "show file", ArgKey: "path"},
	}, utterance)
}

func (x *Read) Execute(ctx context.Context, args tool.Args) *model.Result {
	path, err := x.ws.resolve(args["path"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
			goerr.Wrap(err, "file not found", goerr.V("path", args["path"])))
	}
	if info.IsDir() {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.New("path is a directory", goerr.V("path", args["path"])))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read file", goerr.V("path", args["path"])))
	}
	if len(data) > maxReadSize {
		data = data[:maxReadSize]
		return model.NewResult(x.Name(), string(data)+"\n[truncated]")
	}
	return model.NewResult(x.Name(), string(data))
}

// Write creates or overwrites a workspace file. The utterance form is
// 'write file <path>: <content>'.
type Write struct {
	ws *Workspace
}

func NewWrite(ws *Workspace) *Write { return &Write{ws: ws} }

func (x *Write) Name() string { return "write_file" }

func (x *Write) Description() string {
	return "Write a file: 'write file notes.txt: remember the milk'"
}

func (x *Write) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"path":    {Type: "string", Description: "Path relative to the workspace"},
			"content": {Type: "string", Description: "File contents"},
		},
		Required: []string{"path", "content"},
	}
}

func (x *Write) Match(utterance string) (tool.Args, bool) {
	args, ok := tool.PrefixRule{Prefix: "write file", ArgKey: "input"}.Match(utterance)
	if !ok {
		return nil, false
	}
	path, content, found := strings.Cut(args["input"], ":")
	if !found {
		return nil, false
	}
	return tool.Args{
		"path":    strings.TrimSpace(path),
		"content": strings.TrimSpace(content),
	}, true
}

func (x *Write) Execute(ctx context.Context, args tool.Args) *model.Result {
	path, err := x.ws.resolve(args["path"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to create parent directory", goerr.V("path", args["path"])))
	}
	if err := os.WriteFile(path, []byte(args["content"]), 0o644); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to write file", goerr.V("path", args["path"])))
	}

	result := model.NewResult(x.Name(),
		fmt.Sprintf("Wrote %d bytes to %s", len(args["content"]), args["path"]))
	result.SideEffects = true
	return result
}

// CreateFolder makes a directory (and missing parents) in the workspace.
type CreateFolder struct {
	ws *Workspace
}

func NewCreateFolder(ws *Workspace) *CreateFolder { return &CreateFolder{ws: ws} }

func (x *CreateFolder) Name() string { return "create_folder" }

func (x *CreateFolder) Description() string {
	return "Create a directory: 'create folder projects/2026'"
}

func (x *CreateFolder) Schema() *jsonschema.Schema { return pathSchema() }

func (x *CreateFolder) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "create folder", ArgKey: "path"},
		tool.PrefixRule{Prefix: "create directory", ArgKey: "path"},
		tool.PrefixRule{Prefix: "mkdir", ArgKey: "path"},
	}, utterance)
}

func (x *CreateFolder) Execute(ctx context.Context, args tool.Args) *model.Result {
	path, err := x.ws.resolve(args["path"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return model.NewResult(x.Name(), fmt.Sprintf("Folder %s already exists", args["path"]))
		}
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.New("a file with that name exists", goerr.V("path", args["path"])))
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to create folder", goerr.V("path", args["path"])))
	}

	result := model.NewResult(x.Name(), fmt.Sprintf("Created folder %s", args["path"]))
	result.SideEffects = true
	return result
}

// List shows the entries of a workspace directory.
type List struct {
	ws *Workspace
}

func NewList(ws *Workspace) *List { return &List{ws: ws} }

func (x *List) Name() string { return "list_files" }

func (x *List) Description() string {
	return "List a directory: 'list files' or 'list files docs'"
}

func (x *List) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"path": {Type: "string", Description: "Directory relative to the workspace"},
		},
	}
}

func (x *List) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "list files", ArgKey: "path", AllowEmpty: true},
		tool.PrefixRule{Prefix: "ls", ArgKey: "path", AllowEmpty: true},
	}, utterance)
}

func (x *List) Execute(ctx context.Context, args tool.Args) *model.Result {
	path, err := x.ws.resolve(args["path"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
			goerr.Wrap(err, "failed to read directory", goerr.V("path", args["path"])))
	}
	if len(entries) == 0 {
		return model.NewResult(x.Name(), "Directory is empty")
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "%s/\n", e.Name())
		} else {
			fmt.Fprintf(&b, "%s\n", e.Name())
		}
	}
	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}

// Delete removes a single workspace file. Directories are refused.
type Delete struct {
	ws *Workspace
}

func NewDelete(ws *Workspace) *Delete { return &Delete{ws: ws} }

func (x *Delete) Name() string { return "delete_file" }

func (x *Delete) Description() string {
	return "Delete a file: 'delete file old-notes.txt'"
}

func (x *Delete) Schema() *jsonschema.Schema { return pathSchema() }

func (x *Delete) Match(utterance string) (tool.Args, bool) {
	return tool.PrefixRule{Prefix: "delete file", ArgKey: "path"}.Match(utterance)
}

func (x *Delete) Execute(ctx context.Context, args tool.Args) *model.Result {
	path, err := x.ws.resolve(args["path"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
			goerr.Wrap(err, "file not found", goerr.V("path", args["path"])))
	}
	if info.IsDir() {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.New("refusing to delete a directory", goerr.V("path", args["path"])))
	}
	if err := os.Remove(path); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to delete file", goerr.V("path", args["path"])))
	}

	result := model.NewResult(x.Name(), fmt.Sprintf("Deleted %s", args["path"]))
	result.SideEffects = true
	return result
}

// Search finds workspace files whose name contains the query.
type Search struct {
	ws *Workspace
}

func NewSearch(ws *Workspace) *Search { return &Search{ws: ws} }

func (x *Search) Name() string { return "search_files" }

func (x *Search) Description() string {
	return "Find files by name: 'search files report'"
}

func (x *Search) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: "Substring of the file name"},
		},
		Required: []string{"query"},
	}
}

func (x *Search) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "search files for", ArgKey: "query"},
		tool.PrefixRule{Prefix: "search files", ArgKey: "query"},
		tool.PrefixRule{Prefix: "find files", ArgKey: "query"},
	}, utterance)
}

func (x *Search) Execute(ctx context.Context, args tool.Args) *model.Result {
	query := strings.ToLower(args["query"])

	var hits []string
	err := filepath.WalkDir(x.ws.base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), query) {
			rel, relErr := filepath.Rel(x.ws.base, path)
			if relErr != nil {
				rel = path
			}
			hits = append(hits, rel)
		}
		return nil
	})
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "file search failed"))
	}
	if len(hits) == 0 {
		return model.NewResult(x.Name(), fmt.Sprintf("No files matching %q", args["query"]))
	}

	sort.Strings(hits)
	return model.NewResult(x.Name(), strings.Join(hits, "\n"))
}
