package model

import (
	"time"

	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

// Case is a legal matter as listed by the marketplace API
type Case struct {
	ID         int64
	Title      string
	Status     types.CaseStatus
	ClientName string
	LawyerName string // empty until a lawyer accepts the case
	CreatedAt  time.Time
}

// DisplayTitle returns a title suitable for toasts even when the API sends none
func (c *Case) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "Case #" + formatCaseID(c.ID)
}
