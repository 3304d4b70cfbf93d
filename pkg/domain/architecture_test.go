package domain

import (
	"carecore/testutil"
	"testing"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of
// implementation packages so every layer can depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not import internal packages")
}
