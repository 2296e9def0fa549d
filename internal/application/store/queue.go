package store

import (
	"time"

	"loanbroker/internal/application/models"
)

// queueTime orders the review queue: submission time, or creation time for
// drafts.
func queueTime(app *models.Application) time.Time {
	if app.SubmittedAt != nil {
		return *app.SubmittedAt
	}
	return app.CreatedAt
}
