package watcher

import (
	"os"
	"path/filepath"
)

// FilesystemType is a coarse classification of the filesystem under a path.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// detectFilesystemTypeFunc is swapped out in tests.
var detectFilesystemTypeFunc = detectFilesystemType

// DetectFilesystemType classifies the filesystem holding path. A missing
// path is resolved through its nearest existing parent.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	return detectFilesystemTypeFunc(existingAncestor(path))
}

func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// isRemoteFilesystem reports whether inotify events are unreliable on t.
func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}
