package gjh

import (
	"testing"

	"github.com/cwbudde/gjh/internal/tempfiles"
)

func newManager(t *testing.T) *tempfiles.Manager {
	t.Helper()
	return tempfiles.NewManager(t.TempDir(), nil)
}
