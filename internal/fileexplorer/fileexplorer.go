// Package fileexplorer implements the file_explorer message type's
// operations: browsing, reading, writing, and managing files on the host.
package fileexplorer

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

// maxReadSize bounds read_file to avoid pulling huge files into one
// control-channel response.
const maxReadSize = 5 * 1024 * 1024

// deniedPaths are filesystem roots mutating operations must never target
// directly, regardless of the host OS.
var deniedPaths = []string{"/", "/boot", "/proc", "/sys", "/dev", "/bin", "/sbin", "/usr", `C:\`, `C:\Windows`}

func isDenied(cleanPath string) bool {
	for _, d := range deniedPaths {
		if strings.EqualFold(cleanPath, filepath.Clean(d)) {
			return true
		}
	}
	return false
}

// Register binds the file_explorer message type to this package's
// handler. All actions block on filesystem I/O and are offloaded to the
// worker pool.
func Register(router *dispatch.Router) {
	router.Register("file_explorer", true, Handle)
}

// Handle dispatches one file_explorer action to its implementation.
func Handle(ctx context.Context, s *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "list":
		return list(env.GetString("path", ""))
	case "open":
		return open(env.GetString("path", ""))
	case "read_file":
		return readFile(env.GetString("path", ""))
	case "write_file":
		return writeFile(env.GetString("path", ""), env.GetString("content", ""), env.GetString("encoding", "text"))
	case "create_folder":
		return createFolder(env.GetString("path", ""), env.GetString("name", ""))
	case "create_file":
		return createFile(env.GetString("path", ""), env.GetString("name", ""), env.GetString("content", ""))
	case "rename":
		return rename(env.GetString("path", ""), env.GetString("new_name", ""))
	case "delete":
		return remove(env.GetString("path", ""), env.GetBool("recursive", false))
	case "copy":
		return copyPath(env.GetString("source", ""), env.GetString("destination", ""))
	case "move":
		return movePath(env.GetString("source", ""), env.GetString("destination", ""))
	case "search":
		return search(env.GetString("path", ""), env.GetString("query", ""))
	case "properties":
		return properties(env.GetString("path", ""))
	default:
		return nil, fmt.Errorf("fileexplorer: unknown action %q", env.Action)
	}
}

type entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
	Size        int64  `json:"size,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

func list(path string) (any, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = home
	}
	cleanPath := filepath.Clean(path)

	dirEntries, err := os.ReadDir(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cleanPath, err)
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			Name:        de.Name(),
			Path:        filepath.Join(cleanPath, de.Name()),
			IsDirectory: de.IsDir(),
			Size:        info.Size(),
			Modified:    info.ModTime().Format(time.RFC3339),
		})
	}

	return map[string]any{"action": "list", "path": cleanPath, "files": entries}, nil
}

// open launches the host's default handler for path. The launched
// process is detached; its exit status is not reported back.
func open(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(path)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", cleanPath)
	case "darwin":
		cmd = exec.Command("open", cleanPath)
	default:
		cmd = exec.Command("xdg-open", cleanPath)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("open %s: %w", cleanPath, err)
	}
	return map[string]any{"action": "open", "path": cleanPath, "opened": true}, nil
}

func readFile(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", cleanPath)
	}
	if info.Size() > maxReadSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxReadSize)
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cleanPath, err)
	}

	return map[string]any{
		"action":   "read_file",
		"path":     cleanPath,
		"content":  base64.StdEncoding.EncodeToString(content),
		"size":     len(content),
		"modified": info.ModTime().Format(time.RFC3339),
	}, nil
}

func writeFile(path, content, encoding string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(path)
	if isDenied(cleanPath) {
		return nil, fmt.Errorf("operation denied on system path: %s", cleanPath)
	}

	var data []byte
	if encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		data = decoded
	} else {
		data = []byte(content)
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(cleanPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", cleanPath, err)
	}

	return map[string]any{"action": "write_file", "path": cleanPath, "size": len(data), "written": true}, nil
}

func createFolder(path, name string) (any, error) {
	target := filepath.Join(path, name)
	cleanPath := filepath.Clean(target)
	if isDenied(cleanPath) {
		return nil, fmt.Errorf("operation denied on system path: %s", cleanPath)
	}
	if err := os.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", cleanPath, err)
	}
	return map[string]any{"action": "create_folder", "path": cleanPath, "created": true}, nil
}

func createFile(path, name, content string) (any, error) {
	target := filepath.Join(path, name)
	return writeFile(target, content, "text")
}

func rename(path, newName string) (any, error) {
	if path == "" || newName == "" {
		return nil, fmt.Errorf("path and new_name are required")
	}
	cleanOld := filepath.Clean(path)
	cleanNew := filepath.Join(filepath.Dir(cleanOld), newName)
	if isDenied(cleanOld) || isDenied(cleanNew) {
		return nil, fmt.Errorf("operation denied on system path")
	}
	if err := os.Rename(cleanOld, cleanNew); err != nil {
		return nil, fmt.Errorf("rename %s: %w", cleanOld, err)
	}
	return map[string]any{"action": "rename", "oldPath": cleanOld, "newPath": cleanNew, "renamed": true}, nil
}

func remove(path string, recursive bool) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(path)
	if isDenied(cleanPath) {
		return nil, fmt.Errorf("operation denied on system path: %s", cleanPath)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanPath, err)
	}

	if info.IsDir() {
		if !recursive {
			return nil, fmt.Errorf("%s is a directory; pass recursive=true to delete it", cleanPath)
		}
		if err := os.RemoveAll(cleanPath); err != nil {
			return nil, fmt.Errorf("remove %s: %w", cleanPath, err)
		}
	} else if err := os.Remove(cleanPath); err != nil {
		return nil, fmt.Errorf("remove %s: %w", cleanPath, err)
	}

	return map[string]any{"action": "delete", "path": cleanPath, "deleted": true}, nil
}

func copyPath(source, destination string) (any, error) {
	if source == "" || destination == "" {
		return nil, fmt.Errorf("source and destination are required")
	}
	cleanSrc := filepath.Clean(source)
	cleanDst := filepath.Clean(destination)
	if isDenied(cleanSrc) || isDenied(cleanDst) {
		return nil, fmt.Errorf("operation denied on system path")
	}

	info, err := os.Stat(cleanSrc)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanSrc, err)
	}

	if info.IsDir() {
		if err := copyDir(cleanSrc, cleanDst); err != nil {
			return nil, fmt.Errorf("copy directory: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(cleanDst), 0755); err != nil {
			return nil, fmt.Errorf("create destination directory: %w", err)
		}
		if err := copyFile(cleanSrc, cleanDst, info.Mode()); err != nil {
			return nil, fmt.Errorf("copy file: %w", err)
		}
	}

	return map[string]any{"action": "copy", "source": cleanSrc, "destination": cleanDst, "copied": true}, nil
}

func movePath(source, destination string) (any, error) {
	if source == "" || destination == "" {
		return nil, fmt.Errorf("source and destination are required")
	}
	cleanSrc := filepath.Clean(source)
	cleanDst := filepath.Clean(destination)
	if isDenied(cleanSrc) || isDenied(cleanDst) {
		return nil, fmt.Errorf("operation denied on system path")
	}

	if err := os.MkdirAll(filepath.Dir(cleanDst), 0755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(cleanSrc, cleanDst); err != nil {
		return nil, fmt.Errorf("move %s: %w", cleanSrc, err)
	}

	return map[string]any{"action": "move", "source": cleanSrc, "destination": cleanDst, "moved": true}, nil
}

func search(root, query string) (any, error) {
	if root == "" {
		root = "."
	}
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	query = strings.ToLower(query)

	var matches []entry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries, continue the walk
		}
		if strings.Contains(strings.ToLower(info.Name()), query) {
			matches = append(matches, entry{
				Name:        info.Name(),
				Path:        path,
				IsDirectory: info.IsDir(),
				Size:        info.Size(),
				Modified:    info.ModTime().Format(time.RFC3339),
			})
		}
		if len(matches) >= 500 {
			return io.EOF // cap result size
		}
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("search %s: %w", root, err)
	}

	return map[string]any{"action": "search", "path": root, "query": query, "files": matches}, nil
}

func properties(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanPath, err)
	}
	return map[string]any{
		"action":      "properties",
		"path":        cleanPath,
		"size":        info.Size(),
		"isDirectory": info.IsDir(),
		"modified":    info.ModTime().Format(time.RFC3339),
		"permissions": info.Mode().String(),
	}, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("compute relative path: %w", err)
		}
		targetPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode())
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
		return copyFile(path, targetPath, info.Mode())
	})
}
