package verify

import (
	"context"
	"time"

	"github.com/virtualpytest/core/internal/device"
	"github.com/virtualpytest/core/internal/model"
	"github.com/virtualpytest/core/internal/storage"
)

// ExecuteVerifications runs req.Verifications in order after dropping
// any that fail type-specific filtering (spec §4.5 "Filtering"),
// recording a DB row per verification when tree_id/node_id/team_id are
// all present.
func (e *BatchExecutor) ExecuteVerifications(ctx context.Context, req BatchRequest) BatchResult {
	start := time.Now()
	var result BatchResult
	result.OverallSuccess = true

	for _, v := range req.Verifications {
		if !isValid(v) {
			continue
		}
		item := e.executeOne(ctx, v, req)
		result.Results = append(result.Results, item)
		if !item.Success {
			result.OverallSuccess = false
		}
		e.recordNode(ctx, v, item, req)
	}

	result.ExecutionTimeMS = time.Since(start).Milliseconds()
	if !result.OverallSuccess {
		result.ErrorMessage = lastFailureMessage(result.Results)
	}
	return result
}

// VerifyNode runs every verification attached to a node (spec §4.5
// Contract "verify_node"). The caller resolves the node and passes its
// verifications directly; this just wraps ExecuteVerifications with the
// node/tree identifiers filled in for DB recording.
func (e *BatchExecutor) VerifyNode(ctx context.Context, nodeID, treeID, teamID string, verifications []model.Verification) BatchResult {
	return e.ExecuteVerifications(ctx, BatchRequest{
		Verifications: verifications,
		TeamID:        teamID,
		TreeID:        treeID,
		NodeID:        nodeID,
	})
}

// isValid applies spec §4.5's type-specific filter: drop verifications
// with an empty command, or missing the type's required parameter.
func isValid(v model.Verification) bool {
	if v.Command == "" {
		return false
	}
	switch v.VerificationType {
	case model.VerificationImage:
		return v.StringParam("image_path") != ""
	case model.VerificationText:
		return v.StringParam("text") != ""
	case model.VerificationADB:
		return v.StringParam("search_term") != ""
	default:
		return true
	}
}

func (e *BatchExecutor) executeOne(ctx context.Context, v model.Verification, req BatchRequest) ItemResult {
	vc := e.Controllers.VerificationControllerFor(string(v.VerificationType))
	if vc == nil {
		return ItemResult{
			Command:          v.Command,
			VerificationType: string(v.VerificationType),
			Success:          false,
			Error:            "no controller configured for verification type " + string(v.VerificationType),
		}
	}

	cfg := device.VerificationConfig{
		Command:           v.Command,
		Params:            v.Params,
		VerificationType:  string(v.VerificationType),
		TeamID:            req.TeamID,
		UserInterfaceName: req.UserInterfaceName,
	}
	if req.ImageSourceURL != "" {
		cfg.SourceImagePath = localPathFromSourceURL(req.ImageSourceURL)
	}

	vr, err := vc.Execute(ctx, cfg)
	item := ItemResult{
		Command:          v.Command,
		VerificationType: string(v.VerificationType),
		Success:          vr.Success,
		Message:          vr.Message,
		Confidence:       vr.Confidence,
		SourceURL:        vr.SourceURL,
		ReferenceURL:     vr.ReferenceURL,
		OverlayURL:       vr.OverlayURL,
		ExtractedText:    vr.ExtractedText,
		SearchedText:     vr.SearchedText,
		DetectedLanguage: vr.DetectedLanguage,
		Details:          vr.Details,
	}
	if err != nil {
		item.Success = false
		item.Error = err.Error()
	}
	return item
}

func (e *BatchExecutor) recordNode(ctx context.Context, v model.Verification, item ItemResult, req BatchRequest) {
	if e.Recorder == nil || req.TreeID == "" || req.NodeID == "" || req.TeamID == "" {
		return
	}
	_ = e.Recorder.RecordNodeExecution(ctx, storage.NodeExecution{
		TeamID:         req.TeamID,
		TreeID:         req.TreeID,
		NodeID:         req.NodeID,
		HostName:       req.HostName,
		DeviceModel:    req.DeviceModel,
		DeviceName:     req.DeviceName,
		Success:        item.Success,
		Message:        item.Message,
		ScriptResultID: req.ScriptResultID,
	})
}

// localPathFromSourceURL converts an already-local-on-disk source image
// reference through unchanged; remote URL-to-local-path resolution is a
// ReferenceResolver concern handled upstream of this executor (spec §4.5
// "If image_source_url is provided it is converted to a local path").
func localPathFromSourceURL(sourceURL string) string { return sourceURL }

func lastFailureMessage(results []ItemResult) string {
	for i := len(results) - 1; i >= 0; i-- {
		if !results[i].Success {
			if results[i].Error != "" {
				return results[i].Error
			}
			return results[i].Message
		}
	}
	return ""
}
