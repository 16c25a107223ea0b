package store

import (
	"io"
	"os"
	"time"

	"vavmerge/pkg/errors"
)

// Backup labels. Operational tooling greps for these names.
const (
	LabelBackup       = "backup"
	LabelHWRowsBackup = "backup_hw_rows"
)

// backupStampLayout is the timestamp suffix of backup file names.
const backupStampLayout = "20060102_150405"

// BackupPath names the backup of path: <path>.<label>_<YYYYMMDD_HHMMSS>.
func BackupPath(path, label string, at time.Time) string {
	return path + "." + label + "_" + at.Format(backupStampLayout)
}

// Backup copies path byte for byte to its timestamped backup name, keeping
// the file mode and modification time. A partial copy is removed.
func Backup(path, label string, at time.Time) (string, error) {
	dst := BackupPath(path, label, at)
	if err := copyFile(path, dst); err != nil {
		return "", &errors.BackupError{Path: path, Backup: dst, Err: err}
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if err := writeCopy(out, in, info); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func writeCopy(out *os.File, in io.Reader, info os.FileInfo) error {
	dst := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
