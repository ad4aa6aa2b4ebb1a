package operations

import "github.com/NebulousLabs/errors"

var (
	// ErrAlreadyExists indicates an add targeted a path already present
	// in the profile tree.
	ErrAlreadyExists = errors.New("operations: path already exists")

	// ErrNotFound indicates an operation targeted a path absent from the
	// profile tree.
	ErrNotFound = errors.New("operations: path not found")

	// ErrNotAFile indicates a path resolved to a folder where a file was
	// required.
	ErrNotAFile = errors.New("operations: path is a folder, not a file")

	// ErrNotAFolder indicates a path resolved to a file where a folder
	// was required.
	ErrNotAFolder = errors.New("operations: path is a file, not a folder")
)
