package notify

import "context"

// filteredNotifier forwards only events whose reason is in the allowed set.
type filteredNotifier struct {
	inner   Notifier
	allowed map[string]struct{}
}

// NewFiltered restricts a notifier to the given event reasons, e.g. only
// ImagePullBackOff for a paging webhook. An empty list leaves the notifier
// unfiltered.
func NewFiltered(inner Notifier, reasons []string) Notifier {
	if len(reasons) == 0 {
		return inner
	}
	allowed := make(map[string]struct{}, len(reasons))
	for _, r := range reasons {
		allowed[r] = struct{}{}
	}
	return &filteredNotifier{inner: inner, allowed: allowed}
}

// Name returns the wrapped notifier's name.
func (f *filteredNotifier) Name() string { return f.inner.Name() }

// Send drops events outside the allowed reasons.
func (f *filteredNotifier) Send(ctx context.Context, event Event) error {
	if _, ok := f.allowed[event.Reason]; !ok {
		return nil
	}
	return f.inner.Send(ctx, event)
}
