//go:build linux

package watcher

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// statfs f_type magic numbers, see statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517B
	cifsMagic      = 0xFF534D42
	smb2Magic      = 0xFE534D42
	fuseSuperMagic = 0x65735546
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsMagic, smb2Magic:
		return FSTypeSMB
	case fuseSuperMagic:
		if fuseSubtype(path) == "sshfs" {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// fuseSubtype returns the "fuse.<subtype>" suffix of the longest mount point
// containing path.
func fuseSubtype(path string) string {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return ""
	}
	defer f.Close()

	var best, subtype string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mnt, fstype := fields[1], fields[2]
		if !strings.HasPrefix(path, mnt) || len(mnt) <= len(best) {
			continue
		}
		best = mnt
		subtype = strings.TrimPrefix(fstype, "fuse.")
	}
	return subtype
}
