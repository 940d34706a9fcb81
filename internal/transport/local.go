package transport

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Local copies into a directory on the local file system, such as a mounted share.
// An existing file is replaced; an existing directory receives the copied tree.
type Local struct{}

func (Local) Copy(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return failure(err, "copy cancelled", localPath, remotePath)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return failure(err, "cannot read "+filepath.Base(localPath), localPath, remotePath)
	}
	if info.IsDir() {
		err = fsutil.CopyDir(localPath, remotePath)
	} else {
		err = fsutil.CopyFile(localPath, remotePath)
	}
	if err != nil {
		return failure(err, "copy to "+remotePath+" failed", localPath, remotePath)
	}
	slog.Debug("Copied to local target", logfields.Path(localPath), logfields.Remote(remotePath))
	return nil
}
