package memory

import "context"

// Tick runs the periodic maintenance sweep: consolidation followed by a
// session-manifest overflow check. It is meant to be called from the
// background scheduler loop, not from the per-turn capture/recall path.
func (e *Engine) Tick(ctx context.Context, overflowThresholdBytes int64) (TickResult, error) {
	var result TickResult

	merged, err := e.Consolidate(ctx)
	if err != nil {
		return result, err
	}
	result.Consolidated = merged

	rotated, backupPath, err := CheckSessionOverflow(overflowThresholdBytes)
	if err != nil {
		return result, err
	}
	result.Rotated = rotated
	result.BackupPath = backupPath

	return result, nil
}

// TickResult summarizes one maintenance pass.
type TickResult struct {
	Consolidated int
	Rotated      bool
	BackupPath   string
}
