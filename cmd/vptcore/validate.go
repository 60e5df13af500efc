package main

import (
	"context"
	"fmt"
	"os"

	"github.com/virtualpytest/core/internal/navexec"
	"github.com/virtualpytest/core/internal/pathfind"
)

func runValidate(args []string) {
	cf := commonFlags{}
	for i := 0; i < len(args); i++ {
		if isPositional(args[i]) && cf.userInterfaceName == "" {
			cf.userInterfaceName = args[i]
			continue
		}
		if matched, next := tryParseCommonFlag(args, i, &cf); matched {
			i = next
			continue
		}
		fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
		os.Exit(1)
	}
	if cf.userInterfaceName == "" {
		usage()
		os.Exit(1)
	}

	runScript("validate", cf, func(ctx context.Context, env *scriptEnv) (bool, string) {
		return validateBody(ctx, env, cf)
	})
}

// validateBody implements spec §8 scenario 6: compute an edge-coverage
// traversal (§4.2 ValidationSequence) and drive it step by step. The
// traversal's own ForcedTransition entries already reconcile graph-level
// position drift (disconnected components, return-path fallback); this
// loop additionally watches for *runtime* position drift caused by a step
// that failed to reach its destination, and inserts its own recovery hop
// — a shortest path from the device's actual current position — before
// driving the next precomputed step.
//
// Per the recorded open-question decision: overall success is
// all(step.Success for step in executed steps); a recovered position
// never launders a prior failure into success.
func validateBody(ctx context.Context, env *scriptEnv, cf commonFlags) (bool, string) {
	nav := env.Handle.Nav

	load, err := nav.LoadNavigationTree(ctx, cf.userInterfaceName, env.Config.TeamID)
	if err != nil {
		return false, fmt.Sprintf("load navigation tree: %v", err)
	}
	g, err := nav.Cache.Get(load.TreeID, env.Config.TeamID)
	if err != nil {
		return false, err.Error()
	}

	sequence := pathfind.ValidationSequence(g)
	if len(sequence) == 0 {
		return true, ""
	}

	req := navexec.NavRequest{
		RootTreeID:        load.TreeID,
		UserInterfaceName: cf.userInterfaceName,
		TeamID:            env.Config.TeamID,
		HostName:          env.HostName,
		DeviceModel:       env.DeviceModel,
		DeviceName:        env.DeviceName,
		ScriptResultID:    env.ScriptResultID,
	}

	allSucceeded := true
	var lastErr string
	coveredSteps := 0
	recoveredSteps := 0

	for _, step := range sequence {
		currentNodeID := nav.NavContext.Snapshot().CurrentNodeID
		if currentNodeID != "" && currentNodeID != step.FromNodeID {
			recoveryTransitions, pathErr := pathfind.Path(g, step.FromNodeID, currentNodeID)
			if pathErr != nil {
				// No way back to where the next step expects to start:
				// record this step as unreachable and move on (spec §4.2
				// "mark unreachable and skip this step").
				env.Script.RecordStep(fmt.Sprintf("recover to %s", step.FromLabel), false, 0, "")
				allSucceeded = false
				lastErr = pathErr.Error()
				continue
			}
			for i := range recoveryTransitions {
				recoveryTransitions[i].ForcedTransition = true
			}
			recoveryResult, driveErr := nav.DriveTransitions(ctx, recoveryTransitions, req)
			recoveredSteps++
			env.Script.RecordStep(fmt.Sprintf("recover to %s", step.FromLabel), recoveryResult.Success, int64(recoveryResult.ExecutionTimeS*1000), "")
			if driveErr != nil || !recoveryResult.Success {
				allSucceeded = false
				lastErr = recoveryResult.Error
				continue
			}
		}

		stepResult, driveErr := nav.DriveTransitions(ctx, []pathfind.Transition{step}, req)
		coveredSteps++
		label := fmt.Sprintf("%s -> %s", step.FromLabel, step.ToLabel)
		if step.ForcedTransition {
			label = "forced_transition: " + label
		}
		env.Script.RecordStep(label, stepResult.Success, int64(stepResult.ExecutionTimeS*1000), "")

		if driveErr != nil || !stepResult.Success {
			allSucceeded = false
			if driveErr != nil {
				lastErr = driveErr.Error()
			} else {
				lastErr = stepResult.Error
			}
		}
	}

	env.Logger.Printf("validation sweep complete: %d/%d steps covered, %d recovery hops", coveredSteps, len(sequence), recoveredSteps)
	return allSucceeded, lastErr
}
