package downloader

import (
	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// fileSpec is one file the plan says to download, in order.
type fileSpec struct {
	Patch    int
	FileType FileType
}

// plan decides which files to fetch per §4.2 steps 3-4: a full snapshot
// when there is no current version or the upstream minor has moved, then
// every patch from the snapshot (or the current patch) up to the
// manifest's patch.
func plan(entry manifestEntry, current types.Version, hasCurrent bool) ([]fileSpec, error) {
	if hasCurrent && isNewer(current, entry) {
		return nil, jpdicterrors.ErrDatabaseTooOld
	}

	var files []fileSpec
	startPatch := entry.Snapshot + 1

	needsFull := !hasCurrent || current.Major != entry.Major || current.Minor != entry.Minor
	if needsFull {
		files = append(files, fileSpec{Patch: entry.Snapshot, FileType: FileTypeFull})
	} else {
		startPatch = current.Patch + 1
	}

	for p := startPatch; p <= entry.Patch; p++ {
		files = append(files, fileSpec{Patch: p, FileType: FileTypePatch})
	}

	return files, nil
}

// isNewer reports whether current is strictly ahead of the upstream
// manifest entry, which should never happen absent a stale cached
// manifest.
func isNewer(current types.Version, entry manifestEntry) bool {
	if current.Major != entry.Major {
		return current.Major > entry.Major
	}
	if current.Minor != entry.Minor {
		return current.Minor > entry.Minor
	}
	return current.Patch > entry.Patch
}
