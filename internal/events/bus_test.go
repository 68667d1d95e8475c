package events_test

import (
	"testing"

	"codeberg.org/mutker/perfgov/internal/events"
	"codeberg.org/mutker/perfgov/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lowered = quality.Changed{Old: quality.Medium, New: quality.Low}

func TestFanOutAtMostOnce(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	particles := bus.Subscribe("particles")
	lights := bus.Subscribe("lights")

	bus.Publish(lowered)

	assert.Equal(t, []quality.Changed{lowered}, particles.Drain())
	assert.Empty(t, particles.Drain(), "no redelivery")
	assert.Equal(t, []quality.Changed{lowered}, lights.Drain(), "independent mailboxes")
}

func TestLateSubscriberMissesHistory(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	bus.Publish(lowered)

	late := bus.Subscribe("late")
	assert.Zero(t, late.Pending())
}

func TestEventsExpireAfterTwoFrames(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	sub := bus.Subscribe("slow")

	bus.Publish(lowered)
	assert.Zero(t, bus.EndFrame())
	assert.Equal(t, 1, sub.Pending(), "still visible the frame after")

	assert.Equal(t, 1, bus.EndFrame())
	assert.Nil(t, sub.Drain())
}

func TestDrainOrder(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	sub := bus.Subscribe("ordered")
	raised := quality.Changed{Old: quality.Low, New: quality.Medium}

	bus.Publish(lowered)
	bus.EndFrame()
	bus.Publish(raised)

	assert.Equal(t, []quality.Changed{lowered, raised}, sub.Drain())
}

func TestHandlers(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	var got []quality.Changed
	bus.Handle("journal", func(ev quality.Changed) {
		got = append(got, ev)
	})

	bus.Publish(lowered)
	bus.Publish(lowered)

	require.Len(t, got, 2)
	assert.Equal(t, lowered, got[0])
}

func TestHandlerMayPublish(t *testing.T) {
	bus := events.NewBus[int]()
	sub := bus.Subscribe("sink")
	bus.Handle("echo", func(v int) {
		if v < 3 {
			bus.Publish(v + 1)
		}
	})

	bus.Publish(1)

	assert.Equal(t, []int{1, 2, 3}, sub.Drain())
}

func TestClose(t *testing.T) {
	bus := events.NewBus[quality.Changed]()
	sub := bus.Subscribe("gone")
	bus.Handle("stays", func(quality.Changed) {})
	sub.Close()

	bus.Publish(lowered)

	assert.Zero(t, sub.Pending())
	assert.Equal(t, []string{"stays"}, bus.Subscribers())
}
