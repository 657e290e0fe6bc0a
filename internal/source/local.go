// Copyright 2023 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
)

// localDownloader resolves a template source that's a directory already
// present on the local filesystem.
type localDownloader struct {
	path string
}

func (l *localDownloader) String() string { return l.path }

func (l *localDownloader) Download(ctx context.Context, destDir string) (*DownloadMetadata, error) {
	logger := logging.FromContext(ctx).With("logger", "localDownloader")
	logger.DebugContext(ctx, "copying local template", "src", l.path, "dst", destDir)

	if err := common.CopyRecursive(ctx, &model.ConfigPos{}, &common.CopyParams{
		SrcRoot: l.path,
		DstRoot: destDir,
		FS:      &common.RealFS{},
		Visitor: func(relPath string, de fs.DirEntry) (common.CopyHint, error) {
			return common.CopyHint{AllowPreexisting: true}, nil
		},
	}); err != nil {
		return nil, fmt.Errorf("copying local template from %q: %w", l.path, err)
	}

	return &DownloadMetadata{
		URI:     l.path,
		IsLocal: true,
	}, nil
}
