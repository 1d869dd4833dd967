package visual_test

import (
	"testing"

	"smarthika/testutil"
)

func TestVisualHasNoIO(t *testing.T) {
	testutil.AssertNoTransitiveDependency(t, "smarthika/internal/visual",
		testutil.Any(testutil.NetworkImportForbidden, testutil.StorageImportForbidden),
		"scene derivation is pure")
}
