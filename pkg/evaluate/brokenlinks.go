package evaluate

import (
	"context"
	"time"
)

// A report uploaded during the current UTC month is fresh.
func (e *Evaluator) brokenLinks(_ context.Context, b Binding, _ string) Status {
	atts := b.Field.Attachments()
	if len(atts) == 0 {
		return Status{State: Empty, Detail: "no report uploaded"}
	}
	uploaded, ok := atts[0].Time()
	if !ok {
		return Status{State: Unknown, Detail: "report has no upload date"}
	}

	uploaded = uploaded.UTC()
	now := e.now().UTC()
	detail := uploaded.Format(time.DateOnly)
	if uploaded.Year() == now.Year() && uploaded.Month() == now.Month() {
		return Status{State: Updated, Detail: detail}
	}
	return Status{State: Outdated, Detail: detail}
}
