// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
)

// containerSlots bounds container integration tests running at once across
// the test binary. MK_TEST_CONTAINER_PARALLEL sets the bound; the default is
// min(GOMAXPROCS, 2) because rootless podman hangs under heavier load.
var containerSlots = sync.OnceValue(func() chan struct{} {
	n := min(runtime.GOMAXPROCS(0), 2)
	if v, err := strconv.Atoi(os.Getenv("MK_TEST_CONTAINER_PARALLEL")); err == nil && v > 0 {
		n = v
	}
	return make(chan struct{}, n)
})

// AcquireContainerSlot blocks until a container slot is free and releases it
// when t ends.
func AcquireContainerSlot(t testing.TB) {
	t.Helper()
	slots := containerSlots()
	slots <- struct{}{}
	t.Cleanup(func() { <-slots })
}
