package control

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// SocketBaseName is the UNIX socket filename
const SocketBaseName = "procmux.sock"

// SocketPath returns the control socket location.
// Order of precedence (first wins):
// 1) explicit (from --control-socket or the config file)
// 2) PROCMUX_SOCKET
// 3) if runtime=linux:
//   - PROCMUX_RUNTIME_DIR or $XDG_RUNTIME_DIR or /run/user/<UID>
//     else (darwin, *bsd, etc):
//   - PROCMUX_RUNTIME_DIR or /tmp
func SocketPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("PROCMUX_SOCKET"); env != "" {
		return env
	}

	uid := currentUID()

	if rd := os.Getenv("PROCMUX_RUNTIME_DIR"); rd != "" {
		return filepath.Join(rd, SocketBaseName)
	}

	if runtime.GOOS == "linux" {
		if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
			return filepath.Join(v, SocketBaseName)
		}
		return filepath.Join("/run/user", uid, SocketBaseName)
	}

	// keep it short to avoid the sun_path length limit
	return filepath.Join("/tmp", "procmux-"+uid+".sock")
}

// EnsureRuntimeDir creates the directory holding path.
func EnsureRuntimeDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}

func currentUID() string {
	u, err := user.Current()
	if err == nil && u != nil && u.Uid != "" {
		return u.Uid
	}
	return "0"
}
