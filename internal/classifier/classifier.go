package classifier

import (
	"context"

	"github.com/xaenox/vibez/internal/models"
)

// Classifier analyzes one message against the operator's value config and
// produces its classification. Implementations never fail the pipeline: on
// backend errors they degrade to a heuristic result.
type Classifier interface {
	Classify(ctx context.Context, msg models.Message, cfg models.ValueConfig) models.Classification
}
