package state

import (
	"carecore/testutil"
	"testing"
)

// TestStateStaysInMemory guards the rule that the local store never reaches
// remote storage; the service layer owns that ordering.
func TestStateStaysInMemory(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.RemoteImportForbidden, "state is an in-memory store")
}
