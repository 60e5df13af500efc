package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/virtualpytest/core/internal/actions"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/zap"
)

func runFullzap(args []string) {
	cf := commonFlags{maxIteration: 1}
	var action string
	var audioAnalysis bool
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
		case "--action":
			requireValue(args, i, "--action")
			i++
			action = args[i]
		case "--audio-analysis":
			audioAnalysis = true
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if action == "" {
		usage()
		os.Exit(1)
	}

	runScript("fullzap", cf, func(ctx context.Context, env *scriptEnv) (bool, string) {
		return fullzapBody(ctx, env, cf, action, audioAnalysis)
	})
}

// fullzapBody implements scenario 4/5 of spec §8: repeat an action
// (typically a channel change) --max-iteration times, running the zap
// analyzer after each action completes, and aggregates ZapStatistics
// (spec §4.7).
func fullzapBody(ctx context.Context, env *scriptEnv, cf commonFlags, action string, audioAnalysis bool) (bool, string) {
	iterations := cf.maxIteration
	if iterations <= 0 {
		iterations = 1
	}

	var verifications []model.Verification
	if audioAnalysis {
		verifications = append(verifications, model.Verification{
			VerificationType: model.VerificationAudio,
			Command:          "detect_audio_speech",
		})
	}

	allSucceeded := true
	var lastErr string

	for i := 0; i < iterations; i++ {
		batchResult, err := env.Handle.Actions.ExecuteActions(ctx, actions.BatchRequest{
			Actions:        []model.Action{{Command: action, ActionType: model.ActionTypeRemote}},
			TeamID:         env.Config.TeamID,
			HostName:       env.HostName,
			DeviceModel:    env.DeviceModel,
			DeviceName:     env.DeviceName,
			ScriptResultID: env.ScriptResultID,
		})
		if err != nil || !batchResult.OverallSuccess {
			allSucceeded = false
			lastErr = batchResult.ErrorMessage
			if err != nil {
				lastErr = err.Error()
			}
		}

		completionUnix := env.Handle.NavContext.Snapshot().LastActionTimestamp
		if completionUnix == 0 {
			completionUnix = time.Now().Unix()
		}

		iterResult := env.Handle.Zap.AnalyzeIteration(ctx, zap.Request{
			Iteration:            i + 1,
			ActionCommand:        action,
			ActionCompletionUnix: completionUnix,
			DeviceModel:          env.DeviceModel,
			DeviceName:           env.DeviceName,
			TeamID:               env.Config.TeamID,
			UserInterfaceName:    cf.userInterfaceName,
			HostName:             env.HostName,
			ScriptResultID:       env.ScriptResultID,
			Verifications:        verifications,
		})

		env.Script.RecordStep(fmt.Sprintf("iteration %d: %s", i+1, action), iterResult.Success, int64(iterResult.DurationSeconds*1000), "")
		if !iterResult.Success {
			// spec §8 scenario 5: a zap analysis failure (e.g. poll timeout)
			// is reported but does not abort the remaining iterations.
			lastErr = iterResult.ErrorMessage
		}
	}

	stats := env.Handle.Zap.Stats
	env.Logger.Printf("zap run complete: %d/%d iterations analyzed, success_rate=%.1f%%, zapping_rate=%.1f%%",
		stats.TotalIterations, iterations, stats.SuccessRate(), stats.ZappingSuccessRate())

	return allSucceeded, lastErr
}
