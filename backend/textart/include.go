// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package textart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bureau-foundation/glyph/lib/netutil"
)

// maxIncludeSize bounds one included document.
const maxIncludeSize = 1 << 20

// IncludeResolver reads the documents named by !include directives.
// Policy checks happen before the resolver is called; a resolver only
// performs the read.
type IncludeResolver interface {
	ReadLocal(ctx context.Context, path string) ([]byte, error)
	FetchRemote(ctx context.Context, url string) ([]byte, error)
}

// FileResolver resolves local includes relative to Root and fetches
// remote includes over HTTP.
type FileResolver struct {
	// Root is the base directory for relative include paths. Empty
	// means the process working directory.
	Root string

	client *retryablehttp.Client
}

// NewFileResolver returns a FileResolver rooted at root.
func NewFileResolver(root string) *FileResolver {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	client.HTTPClient.Timeout = 10 * time.Second
	return &FileResolver{Root: root, client: client}
}

func (r *FileResolver) ReadLocal(_ context.Context, path string) ([]byte, error) {
	if !filepath.IsAbs(path) && r.Root != "" {
		path = filepath.Join(r.Root, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return netutil.ReadLimited(file, maxIncludeSize)
}

func (r *FileResolver) FetchRemote(ctx context.Context, url string) ([]byte, error) {
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	response, err := r.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", url, response.Status)
	}
	return netutil.ReadLimited(response.Body, maxIncludeSize)
}

var _ IncludeResolver = (*FileResolver)(nil)

// errIncludeDepth is reported when includes nest deeper than
// maxIncludeDepth, which is also how include cycles end.
var errIncludeDepth = errors.New("includes nested too deeply")

// isRemote reports whether an include target is a URL.
func isRemote(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
