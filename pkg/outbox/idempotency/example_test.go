package idempotency

import (
	"context"
	"fmt"
	"time"
)

type exampleStore struct {
	values []bool
	index  int
}

func (s *exampleStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	result := false
	if s.index < len(s.values) {
		result = s.values[s.index]
	}
	s.index++
	return result, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(context.Context, ...string) error { return nil }

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{values: []bool{true, false}}, 7*24*time.Hour)
	eventID := "f47ac10b-58cc-4372-a567-0e02b2c3d479"

	for i := 0; i < 2; i++ {
		seen, _ := manager.CheckAndMarkProcessed(ctx, "event-broker", eventID)
		if seen {
			fmt.Println("already processed")
			continue
		}
		fmt.Println("processing event")
	}
	// Output:
	// processing event
	// already processed
}
