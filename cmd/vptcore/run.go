package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/virtualpytest/core/internal/capturepaths"
	"github.com/virtualpytest/core/internal/config"
	"github.com/virtualpytest/core/internal/corelog"
	"github.com/virtualpytest/core/internal/devicehandle"
	"github.com/virtualpytest/core/internal/runid"
	"github.com/virtualpytest/core/internal/scriptctx"
	"github.com/virtualpytest/core/internal/storage"
	"github.com/virtualpytest/core/internal/treecache"
)

// signalCancelContext cancels ctx on SIGINT/SIGTERM, the same
// scoped-acquisition shape the teacher's cmd/kilroy/main.go uses to give a
// CLI run a cancelable context without a hardcoded deadline.
func signalCancelContext() (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	stopCh := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				cancel(fmt.Errorf("stopped by signal %s", sig.String()))
			case <-stopCh:
				return
			}
		}
	}()
	cleanup := func() {
		signal.Stop(sigCh)
		close(stopCh)
		cancel(nil)
	}
	return ctx, cleanup
}

// scriptEnv is the collaborator set a subcommand body runs against,
// assembled once by runScript (spec §4.10 composition record plus the
// external collaborators named in spec §6).
type scriptEnv struct {
	Config      config.Config
	Handle      *devicehandle.Handle
	Recorder    *storage.SupabaseClient
	ObjectStore storage.ObjectStore
	Script      *scriptctx.ScriptContext
	Logger      *log.Logger

	RunID          string
	ScriptResultID string
	HostName       string
	DeviceModel    string
	DeviceName     string
}

// runScript implements the script-subprocess lifecycle (spec §6 "CLI
// surface", §7 "User-visible failure"): load config, tee stdout, build the
// device composition record, record the script-execution-start row, run
// body under panic recovery, then finish with the screenshot/report/log
// upload and database update, always exiting 0 unless an unhandled error
// occurs before body ever runs.
func runScript(scriptName string, cf commonFlags, body func(ctx context.Context, env *scriptEnv) (success bool, errMsg string)) {
	logger := corelog.New(scriptName)

	cfg, err := config.Load(os.Getenv("VPTCORE_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tee, teeErr := scriptctx.BeginStdoutTee()
	if teeErr != nil {
		logger.Printf("stdout tee unavailable, continuing without captured logs: %v", teeErr)
	}

	ctx, cleanupSignalCtx := signalCancelContext()
	defer cleanupSignalCtx()
	if cfg.ScriptTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.ScriptTimeout)
		defer cancelTimeout()
	}

	id := runid.MustNew()
	deviceModel := cf.device
	deviceName := cf.device

	runningLogPath := filepath.Join(cfg.CaptureRoot, cfg.HotDirName, "running.log")
	sc := scriptctx.New(scriptName, runningLogPath, 0)

	capture := &capturepaths.Provider{CaptureRoot: cfg.CaptureRoot, HotDirName: cfg.HotDirName}
	frameMetadataDir := capture.AnalysisDir(deviceModel, deviceName)

	supa := storage.NewSupabaseClient(storage.SupabaseConfig{BaseURL: cfg.Supabase.URL, APIKey: cfg.Supabase.ServiceKey})
	r2 := storage.NewR2Client(cfg.R2)

	controllers := DefaultControllerFactory(cf.host, deviceModel, deviceName)

	handle := devicehandle.New(devicehandle.Config{
		HostName:         cf.host,
		DeviceModel:      deviceModel,
		DeviceName:       deviceName,
		Controllers:      controllers,
		Trees:            supa,
		Recorder:         supa,
		Cache:            treecache.New(),
		FrameMetadataDir: frameMetadataDir,
		Capture:          capture,
		Markers:          capture,
		Script:           sc,
	})
	handle.NavContext.ScriptID = id
	handle.NavContext.ScriptName = scriptName

	scriptResultID, startErr := supa.RecordScriptExecutionStart(ctx, storage.ScriptExecutionStart{
		TeamID:            cfg.TeamID,
		ScriptName:        scriptName,
		ScriptType:        "cli",
		UserInterfaceName: cf.userInterfaceName,
		HostName:          cf.host,
		DeviceName:        deviceName,
	})
	if startErr != nil {
		// spec §7 DBRecordingSkipped: a durable-storage hiccup never fails
		// the script itself.
		logger.Printf("record_script_execution_start skipped: %v", startErr)
	}

	env := &scriptEnv{
		Config:         cfg,
		Handle:         handle,
		Recorder:       supa,
		ObjectStore:    r2,
		Script:         sc,
		Logger:         logger,
		RunID:          id,
		ScriptResultID: scriptResultID,
		HostName:       cf.host,
		DeviceModel:    deviceModel,
		DeviceName:     deviceName,
	}

	start := time.Now()
	success, errMsg := runBodyGuarded(ctx, env, body, logger)
	elapsedMS := time.Since(start).Milliseconds()

	finish(ctx, env, success, errMsg, elapsedMS, tee)

	fmt.Printf("SCRIPT_SUCCESS:%t\n", success)
	os.Exit(0)
}

// runBodyGuarded recovers a panicking body into a failed-script result
// rather than an unhandled exit, matching spec §7 "unrecoverable internal
// exceptions are caught at the script boundary and recorded as the
// script's error message".
func runBodyGuarded(ctx context.Context, env *scriptEnv, body func(context.Context, *scriptEnv) (bool, string), logger *log.Logger) (success bool, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			success = false
			errMsg = fmt.Sprintf("panic: %v", r)
			logger.Printf("recovered panic: %v\n%s", r, debug.Stack())
		}
	}()
	return body(ctx, env)
}

// finish runs the cleanup/report phase every script reaches regardless of
// success (spec §7 "the script always proceeds to the cleanup/report
// phase"): upload screenshots, write a plain-text run report and the
// captured stdout log to object storage, then update the database row.
func finish(ctx context.Context, env *scriptEnv, success bool, errMsg string, elapsedMS int64, tee *scriptctx.StdoutTee) {
	var logsOutput string
	if tee != nil {
		_ = tee.Close()
		logsOutput = tee.Output()
	}

	if _, err := env.Script.UploadScreenshots(ctx, env.ObjectStore, env.DeviceName); err != nil {
		env.Logger.Printf("screenshot upload failed: %v", err)
	}

	reportURL, logsURL := uploadReportAndLogs(ctx, env, success, errMsg, logsOutput)

	if env.ScriptResultID != "" {
		err := env.Recorder.UpdateScriptExecutionResult(ctx, storage.ScriptExecutionResult{
			ScriptResultID:  env.ScriptResultID,
			Success:         success,
			ExecutionTimeMS: elapsedMS,
			HTMLReportURL:   reportURL,
			LogsURL:         logsURL,
			ErrorMessage:    errMsg,
		})
		if err != nil {
			env.Logger.Printf("update_script_execution_result skipped: %v", err)
		}
	}

	if reportURL != "" {
		fmt.Printf("SCRIPT_REPORT_URL:%s\n", reportURL)
	}
	if logsURL != "" {
		fmt.Printf("SCRIPT_LOGS_URL:%s\n", logsURL)
	}
}

// uploadReportAndLogs writes a plain-text run summary (report HTML
// templating is explicitly out of scope) and the captured stdout to
// object storage, returning their public URLs.
func uploadReportAndLogs(ctx context.Context, env *scriptEnv, success bool, errMsg string, logsOutput string) (reportURL, logsURL string) {
	tmpDir, err := os.MkdirTemp("", "vptcore-report-*")
	if err != nil {
		env.Logger.Printf("report staging dir: %v", err)
		return "", ""
	}
	defer os.RemoveAll(tmpDir)

	reportPath := filepath.Join(tmpDir, "report.txt")
	report := fmt.Sprintf("script=%s\nsuccess=%t\nerror=%s\nscreenshots=%d\n",
		env.Script.ScriptName, success, errMsg, len(env.Script.ScreenshotPaths()))
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		env.Logger.Printf("write report: %v", err)
		return "", ""
	}

	logsPath := filepath.Join(tmpDir, "logs.txt")
	if err := os.WriteFile(logsPath, []byte(logsOutput), 0o644); err != nil {
		env.Logger.Printf("write logs: %v", err)
	}

	uploads := []storage.UploadRequest{
		{LocalPath: reportPath, RemotePath: storage.PrefixScriptReports + "/" + env.RunID + "/report.txt", ContentType: "text/plain"},
		{LocalPath: logsPath, RemotePath: storage.PrefixScriptReports + "/" + env.RunID + "/logs.txt", ContentType: "text/plain"},
	}
	result, err := env.ObjectStore.UploadFiles(ctx, uploads)
	if err != nil {
		env.Logger.Printf("upload report/logs: %v", err)
		return "", ""
	}
	for _, u := range result.Uploaded {
		switch u.LocalPath {
		case reportPath:
			reportURL = u.RemoteURL
		case logsPath:
			logsURL = u.RemoteURL
		}
	}
	return reportURL, logsURL
}
