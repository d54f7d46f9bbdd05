package llm

import "context"

// OfflineClient never reaches a model. Every caller falls back to its deterministic
// path, which keeps the simulator usable without credentials.
type OfflineClient struct{}

// Generate implements Client.
func (OfflineClient) Generate(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrUnavailable
}
