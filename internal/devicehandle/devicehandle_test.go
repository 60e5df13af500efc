package devicehandle

import (
	"testing"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/treecache"
)

func TestNew_SharesOneNavigationContextAcrossExecutors(t *testing.T) {
	h := New(Config{
		HostName:    "host-1",
		DeviceModel: "model-x",
		DeviceName:  "device-1",
		Controllers: &device.Controllers{},
		Cache:       treecache.New(),
	})

	if h.Actions == nil || h.Verify == nil || h.Nav == nil || h.Zap == nil {
		t.Fatal("expected all singleton executors to be constructed")
	}
	if h.Actions.NavContext != h.NavContext || h.Nav.NavContext != h.NavContext {
		t.Fatal("expected ActionExecutor and NavigationExecutor to share the Handle's NavigationContext")
	}
	if h.Nav.Verify != h.Verify {
		t.Fatal("expected NavigationExecutor to reuse the Handle's VerificationExecutor")
	}
}
