package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string                        { return s.name }
func (s *stubJob) Run(context.Context) (Report, error) { return nil, nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA, time.Hour)
	registry.Register(nil, time.Hour)
	registry.Register(jobB, time.Minute)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryDueHonoursCadence(t *testing.T) {
	registry := NewRegistry()
	hourly := &stubJob{name: "hourly"}
	daily := &stubJob{name: "daily"}
	always := &stubJob{name: "always"}
	registry.Register(hourly, time.Hour)
	registry.Register(daily, 24*time.Hour)
	registry.Register(always, 0)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []Job{hourly, daily, always}, registry.Due(start))

	registry.MarkRan(hourly, start)
	registry.MarkRan(daily, start)
	registry.MarkRan(always, start)

	assert.Equal(t, []Job{always}, registry.Due(start.Add(59*time.Minute)))
	assert.Equal(t, []Job{hourly, always}, registry.Due(start.Add(time.Hour)))
	assert.Equal(t, []Job{hourly, daily, always}, registry.Due(start.Add(24*time.Hour)))
}
