// Package mocks provides in-memory test doubles for the store, auth and
// event interfaces.
//
// Each mock exposes one optional function field per method. When a field is
// nil the mock falls back to a simple in-memory behaviour and records the
// call, so most tests only override the method they care about:
//
//	notifications := &mocks.MockNotificationStore{
//		CreateFn: func(ctx context.Context, n *domain.Notification) error {
//			return errors.New("insert failed")
//		},
//	}
package mocks
