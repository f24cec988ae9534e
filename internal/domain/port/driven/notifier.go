package driven

import "context"

// CompletionNotifier informs the external ATS that a take-home test has been
// completed, by issuing an authenticated callback to the URL it handed us at
// creation time.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, url string) error
}
