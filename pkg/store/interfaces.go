//go:generate mockgen -destination=./mocks/store.go -package=mocks . Storage

package store

import (
	"context"

	"github.com/glorpus-work/pindex/pkg/model"
)

// Storage is the backing-store collaborator the catalog is refreshed from.
// List enumerates every artifact file currently present; Stat resolves a
// single filename. Implementations must tolerate concurrent external
// modification: a file vanishing mid-enumeration is not an error.
type Storage interface {
	List(ctx context.Context) ([]model.FileInfo, error)
	Stat(ctx context.Context, filename string) (model.FileInfo, error)
}
