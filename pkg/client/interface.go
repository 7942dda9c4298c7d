package client

import (
	"context"

	"github.com/menta2k/design-overlay/pkg/types"
)

// VisionClient is a vision model backend able to locate print zones on a mockup
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	LocatePrintZone(ctx context.Context, model, prompt, imgB64 string) (*types.PrintZoneResult, error)
}
