package waitlist

import (
	"tripstock/internal/holds"

	"github.com/google/uuid"
)

type JoinWaitlistRequest struct {
	Quantity  int          `json:"quantity" binding:"required"`
	Source    holds.Source `json:"source,omitempty"`
	Reference string       `json:"reference,omitempty"`
}

func (r JoinWaitlistRequest) ToInput(tenantID, capacityID uuid.UUID) JoinInput {
	source := r.Source
	if source == "" {
		source = holds.SourceWebsite
	}
	return JoinInput{
		TenantID:   tenantID,
		CapacityID: capacityID,
		Quantity:   r.Quantity,
		Source:     source,
		Reference:  r.Reference,
	}
}
