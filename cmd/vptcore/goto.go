package main

import (
	"context"
	"fmt"
	"os"

	"github.com/virtualpytest/core/internal/navexec"
	"github.com/virtualpytest/core/internal/pathfind"
	"github.com/virtualpytest/core/internal/screenshot"
)

func runGoto(args []string) {
	cf := commonFlags{}
	var node string
	for i := 0; i < len(args); i++ {
		if isPositional(args[i]) && cf.userInterfaceName == "" {
			cf.userInterfaceName = args[i]
			continue
		}
		if matched, next := tryParseCommonFlag(args, i, &cf); matched {
			i = next
			continue
		}
		switch args[i] {
		case "--node":
			requireValue(args, i, "--node")
			i++
			node = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if cf.userInterfaceName == "" || node == "" {
		usage()
		os.Exit(1)
	}

	runScript("goto", cf, func(ctx context.Context, env *scriptEnv) (bool, string) {
		return gotoBody(ctx, env, cf, node)
	})
}

// gotoBody implements scenario 1/2 of spec §8: load the navigation tree,
// capture one screenshot up front, pathfind to node, and drive each
// transition individually so a screenshot is recorded after every one
// (spec §4.6 "Navigate", §8 scenario 1 "screenshot list length = 1
// initial + 2 post-actions + 1 final"), plus a closing screenshot.
func gotoBody(ctx context.Context, env *scriptEnv, cf commonFlags, node string) (bool, string) {
	nav := env.Handle.Nav

	load, err := nav.LoadNavigationTree(ctx, cf.userInterfaceName, env.Config.TeamID)
	if err != nil {
		return false, fmt.Sprintf("load navigation tree: %v", err)
	}

	g, err := nav.Cache.Get(load.TreeID, env.Config.TeamID)
	if err != nil {
		return false, err.Error()
	}
	startNodeID := nav.NavContext.Snapshot().CurrentNodeID
	transitions, err := pathfind.Path(g, node, startNodeID)
	if err != nil {
		return false, err.Error()
	}

	recordScreenshot(ctx, env)

	req := navexec.NavRequest{
		RootTreeID:        load.TreeID,
		UserInterfaceName: cf.userInterfaceName,
		TeamID:            env.Config.TeamID,
		Target:            node,
		HostName:          env.HostName,
		DeviceModel:       env.DeviceModel,
		DeviceName:        env.DeviceName,
		ScriptResultID:    env.ScriptResultID,
	}

	success := true
	errMsg := ""
	for _, t := range transitions {
		stepResult, err := nav.DriveTransitions(ctx, []pathfind.Transition{t}, req)
		recordScreenshot(ctx, env)
		env.Script.RecordStep(fmt.Sprintf("%s -> %s", t.FromLabel, t.ToLabel), stepResult.Success, int64(stepResult.ExecutionTimeS*1000), "")
		if err != nil || !stepResult.Success {
			success = false
			if err != nil {
				errMsg = err.Error()
			} else {
				errMsg = stepResult.Error
			}
			break
		}
	}

	recordScreenshot(ctx, env)
	return success, errMsg
}

// recordScreenshot captures and tracks one screenshot via the AV
// controller, folding failures into a positional "None" slot (spec §4.8
// "preserve None slots positionally").
func recordScreenshot(ctx context.Context, env *scriptEnv) {
	if env.Handle.Controllers == nil || env.Handle.Controllers.AV == nil {
		_, _ = env.Script.AddScreenshot("")
		return
	}
	path := screenshot.CaptureScreenshot(ctx, env.Handle.Controllers.AV, env.Logger)
	_, _ = env.Script.AddScreenshot(path)
}
