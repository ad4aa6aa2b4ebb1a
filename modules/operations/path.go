package operations

import (
	"strings"

	"github.com/hive2hive/h2h/modules"
)

// splitPath divides an absolute slash-separated path ("/docs/report.txt")
// into its parent directory segments and final name. The root itself
// splits to (nil, "").
func splitPath(path string) ([]string, string) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, ""
	}
	segments := strings.Split(trimmed, "/")
	return segments[:len(segments)-1], segments[len(segments)-1]
}

// resolveFolder walks dirs (a sequence of child-folder names) from root,
// returning the folder at the end of the path.
func resolveFolder(root *modules.FolderIndex, dirs []string) (*modules.FolderIndex, bool) {
	cur := root
	for _, seg := range dirs {
		child, ok := cur.Children[seg]
		if !ok {
			return nil, false
		}
		folder, ok := child.(*modules.FolderIndex)
		if !ok {
			return nil, false
		}
		cur = folder
	}
	return cur, true
}

// resolveFile resolves path to its FileIndex and containing folder.
func resolveFile(root *modules.FolderIndex, path string) (parent *modules.FolderIndex, file *modules.FileIndex, err error) {
	dirs, name := splitPath(path)
	parent, ok := resolveFolder(root, dirs)
	if !ok {
		return nil, nil, ErrNotFound
	}
	child, ok := parent.Children[name]
	if !ok {
		return nil, nil, ErrNotFound
	}
	file, ok = child.(*modules.FileIndex)
	if !ok {
		return nil, nil, ErrNotAFile
	}
	return parent, file, nil
}

// resolveFolderPath resolves path to its FolderIndex.
func resolveFolderPath(root *modules.FolderIndex, path string) (*modules.FolderIndex, error) {
	dirs, name := splitPath(path)
	if name == "" {
		return root, nil
	}
	parent, ok := resolveFolder(root, dirs)
	if !ok {
		return nil, ErrNotFound
	}
	child, ok := parent.Children[name]
	if !ok {
		return nil, ErrNotFound
	}
	folder, ok := child.(*modules.FolderIndex)
	if !ok {
		return nil, ErrNotAFolder
	}
	return folder, nil
}
