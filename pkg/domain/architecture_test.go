package domain_test

import (
	"testing"

	"smarthika/testutil"
)

func TestDomainStaysPure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.Any(testutil.InternalImportForbidden, testutil.NetworkImportForbidden, testutil.StorageImportForbidden),
		"the record model is shared by every adapter")
	testutil.AssertNoTransitiveDependency(t, "smarthika/pkg/domain", testutil.UnderPrefix("smarthika/internal"),
		"domain must not reach internal packages")
}
