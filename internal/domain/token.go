package domain

import "context"

// TokenService is the external value-transfer collaborator. A Transfer is
// invoked only after all internal effects of the enclosing operation have
// been staged; its failure aborts the whole operation.
type TokenService interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
}
