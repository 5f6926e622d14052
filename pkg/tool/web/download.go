package web

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

// maxDownloadSize caps a single download (100 MiB).
const maxDownloadSize = 100 << 20

// Download saves a remote file into the download directory. Interrupted or
// failed downloads leave no partial file behind.
type Download struct {
	client *Client
	dir    string
}

func NewDownload(client *Client, dir string) *Download {
	return &Download{client: client, dir: dir}
}

func (x *Download) Name() string {
	return "download_file"
}

func (x *Download) Description() string {
	return "Download a file: 'download https://example.com/file.pdf'"
}

func (x *Download) Schema() *jsonschema.Schema {
	return urlSchema()
}

func (x *Download) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "download file", ArgKey: "url"},
		tool.PrefixRule{Prefix: "download", ArgKey: "url"},
	}, utterance)
}

// Timeout allows large files to finish within the registry's cap.
func (x *Download) Timeout() time.Duration {
	return 2 * time.Minute
}

func (x *Download) Execute(ctx context.Context, args tool.Args) *model.Result {
	target := args["url"]

	name, err := filenameFromURL(target)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to create download directory", goerr.V("dir", x.dir)))
	}

	resp, err := x.client.get(ctx, target)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution, err)
	}
	defer resp.Body.Close()

	dest := filepath.Join(x.dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to create file", goerr.V("path", dest)))
	}

	written, err := io.Copy(f, io.LimitReader(resp.Body, maxDownloadSize))
	closeErr := f.Close()
	if err != nil || closeErr != nil {
		os.Remove(dest)
		if err == nil {
			err = closeErr
		}
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "download failed", goerr.V("url", target)))
	}

	result := model.NewResult(x.Name(),
		fmt.Sprintf("Downloaded %s (%s) to %s", name, formatBytes(written), dest))
	result.SideEffects = true
	return result
}

func filenameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", goerr.Wrap(err, "invalid URL", goerr.V("url", raw))
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	// Strip any path separators that survived
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	return name, nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
