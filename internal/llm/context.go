package llm

import "context"

type contextKey string

const purposeKey contextKey = "generator_purpose"

// WithPurpose attaches a purpose label to the context for request logging,
// e.g. "level-gen" or "tutor-chat".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
