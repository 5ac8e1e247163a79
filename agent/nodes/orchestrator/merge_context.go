package orchestratornode

import (
	"fmt"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

func MergeContext(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Context = Merge(in.Prior, in.Decision.Extraction, in.Text)
	return in, nil
}

// Merge overlays the extraction on prior. The current situation falls back
// to the raw message when the router extracted none.
func Merge(prior contractx.BusinessContext, extraction contractx.ContextPatch, message string) contractx.BusinessContext {
	merged := prior.Merge(extraction)
	if extraction.CurrentSituation == nil {
		merged.CurrentSituation = message
	}
	return merged
}
