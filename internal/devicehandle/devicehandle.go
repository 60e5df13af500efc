// Package devicehandle implements DeviceHandle (spec §4.10): the
// composition record a script run holds for the lifetime of one device
// selection. It owns the typed controller set, the mutable navigation
// context, and singleton executors so that their internal caches (the
// action-type registry, the reference-image cache, the unified-graph
// cache) persist across every navigation step taken against the device.
// Grounded on the teacher's internal/attractor/engine/handlers.go
// HandlerRegistry composition-record pattern, per spec §9's
// design note: model as a composition record rather than a global
// registry.
package devicehandle

import (
	"github.com/virtualpytest/core/internal/actions"
	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/navexec"
	"github.com/virtualpytest/core/internal/scriptctx"
	"github.com/virtualpytest/core/internal/storage"
	"github.com/virtualpytest/core/internal/treecache"
	"github.com/virtualpytest/core/internal/verify"
	"github.com/virtualpytest/core/internal/zap"
)

// Handle is the per-device composition record (spec §4.10). Construct
// one per selected device at script start and reuse it for every
// subsequent navigation/action/verification/zap call in that run.
type Handle struct {
	HostName    string
	DeviceModel string
	DeviceName  string

	Controllers *device.Controllers
	NavContext  *device.NavigationContext
	Script      *scriptctx.ScriptContext

	Actions *actions.Executor
	Verify  *verify.BatchExecutor
	Nav     *navexec.Executor
	Zap     *zap.Analyzer
}

// Config is the collaborator set New wires into a Handle's singleton
// executors (spec §6 "External interfaces").
type Config struct {
	HostName    string
	DeviceModel string
	DeviceName  string

	Controllers *device.Controllers
	Trees       storage.TreeSource
	Recorder    storage.ExecutionRecorder
	Cache       *treecache.Cache

	FrameMetadataDir string
	Capture          verify.CapturePathProvider
	Markers          zap.MarkerPathProvider
	Script           *scriptctx.ScriptContext
}

// New builds a Handle, wiring one ActionExecutor, one VerificationExecutor,
// one NavigationExecutor, and one zap Analyzer around a shared
// NavigationContext, exactly the single-writer composition spec §4.10
// requires (no two scripts may share a DeviceHandle, enforced externally).
func New(cfg Config) *Handle {
	navCtx := &device.NavigationContext{}

	actionExec := &actions.Executor{
		Controllers:      cfg.Controllers,
		NavContext:       navCtx,
		Recorder:         cfg.Recorder,
		FrameMetadataDir: cfg.FrameMetadataDir,
	}
	verifyExec := &verify.BatchExecutor{
		Controllers: cfg.Controllers,
		Recorder:    cfg.Recorder,
	}
	navExec := &navexec.Executor{
		Cache:      cfg.Cache,
		Trees:      cfg.Trees,
		Actions:    actionExec,
		Verify:     verifyExec,
		NavContext: navCtx,
	}
	zapAnalyzer := &zap.Analyzer{
		Capture:  cfg.Capture,
		Markers:  cfg.Markers,
		Verify:   verifyExec,
		Recorder: cfg.Recorder,
		Stats:    zap.NewStatistics(),
	}

	return &Handle{
		HostName:    cfg.HostName,
		DeviceModel: cfg.DeviceModel,
		DeviceName:  cfg.DeviceName,
		Controllers: cfg.Controllers,
		NavContext:  navCtx,
		Script:      cfg.Script,
		Actions:     actionExec,
		Verify:      verifyExec,
		Nav:         navExec,
		Zap:         zapAnalyzer,
	}
}
