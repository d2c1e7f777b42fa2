package ports

import "context"

// ExpiryCheckInput identifies one permit for the sweep to re-evaluate.
type ExpiryCheckInput struct {
	PermitID string
}

// ExpiryService re-evaluates a permit's derived status and records
// expiring/expired transitions.
type ExpiryService interface {
	Process(ctx context.Context, in ExpiryCheckInput) error
}
