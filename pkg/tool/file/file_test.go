package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool/file"
)

func TestWriteThenRead(t *testing.T) {
	ctx := context.Background()
	ws := file.NewWorkspace(t.TempDir())

	write := file.NewWrite(ws)
	args, ok := write.Match("write file notes.txt: remember the milk")
	gt.True(t, ok)
	gt.Equal(t, args["path"], "notes.txt")
	gt.Equal(t, args["content"], "remember the milk")

	result := write.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.True(t, result.SideEffects)

	read := file.NewRead(ws)
	result = read.Execute(ctx, map[string]string{"path": "notes.txt"})
	gt.True(t, result.OK())
	gt.Equal(t, result.Payload, "remember the milk")
}

func TestReadMissingFile(t *testing.T) {
	ctx := context.Background()
	ws := file.NewWorkspace(t.TempDir())

	result := file.NewRead(ws).Execute(ctx, map[string]string{"path": "absent.txt"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindNotFound)
}

func TestPathEscapeRejected(t *testing.T) {
	ctx := context.Background()
	ws := file.NewWorkspace(t.TempDir())

	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		result := file.NewRead(ws).Execute(ctx, map[string]string{"path": path})
		gt.True(t, !result.OK())
		gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ws := file.NewWorkspace(dir)

	gt.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "docs"), 0o755))

	result := file.NewList(ws).Execute(ctx, map[string]string{"path": ""})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("a.txt")
	gt.S(t, result.Payload).Contains("docs/")

	del := file.NewDelete(ws)
	result = del.Execute(ctx, map[string]string{"path": "a.txt"})
	gt.True(t, result.OK())

	// Directories are refused
	result = del.Execute(ctx, map[string]string{"path": "docs"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
}

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ws := file.NewWorkspace(dir)

	create := file.NewCreateFolder(ws)
	args, ok := create.Match("create folder projects/2026")
	gt.True(t, ok)
	gt.Equal(t, args["path"], "projects/2026")

	result := create.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.True(t, result.SideEffects)

	info, err := os.Stat(filepath.Join(dir, "projects", "2026"))
	gt.NoError(t, err)
	gt.True(t, info.IsDir())

	// Creating it again is not an error
	result = create.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("already exists")

	// A file in the way is rejected
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	result = create.Execute(ctx, map[string]string{"path": "notes.txt"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)

	// Escapes are rejected like every other file tool
	result = create.Execute(ctx, map[string]string{"path": "../outside"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
}

func TestSearchFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ws := file.NewWorkspace(dir)

	gt.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "report-2026.txt"), []byte("x"), 0o644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	result := file.NewSearch(ws).Execute(ctx, map[string]string{"query": "report"})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains(filepath.Join("docs", "report-2026.txt"))
	gt.S(t, result.Payload).NotContains("other.txt")

	result = file.NewSearch(ws).Execute(ctx, map[string]string{"query": "zzz"})
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("No files matching")
}
