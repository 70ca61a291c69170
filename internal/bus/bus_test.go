package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
)

func TestPublish_FanoutToAllMatching(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	a := b.Subscribe("org-a")
	admin := b.Subscribe("")

	b.Publish(domain.Event{Type: domain.EventSampleIngested, OrgID: "org-a", Payload: "v"})

	evt := <-a.C
	assert.Equal(t, domain.EventSampleIngested, evt.Type)
	assert.Equal(t, "org-a", evt.OrgID)

	evt = <-admin.C
	assert.Equal(t, "org-a", evt.OrgID)
}

func TestPublish_TenantFiltering(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	subA := b.Subscribe("org-a")
	subB := b.Subscribe("org-b")

	b.Publish(domain.Event{Type: domain.EventSampleIngested, OrgID: "org-a", Payload: 1})
	b.Publish(domain.Event{Type: domain.EventSampleIngested, OrgID: "org-b", Payload: 2})

	evt := <-subA.C
	assert.Equal(t, "org-a", evt.OrgID)
	assert.Len(t, subA.C, 0)

	evt = <-subB.C
	assert.Equal(t, "org-b", evt.OrgID)
	assert.Len(t, subB.C, 0)
}

func TestPublish_TenantlessEventReachesAll(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	subA := b.Subscribe("org-a")

	// setting_updated carries no tenant; every subscriber sees it
	b.Publish(domain.Event{Type: domain.EventSettingUpdated, Payload: "k"})

	evt := <-subA.C
	assert.Equal(t, domain.EventSettingUpdated, evt.Type)
}

func TestPublish_SlowSubscriberDropped(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	slow := b.Subscribe("org-a")
	require.Equal(t, 1, b.SubscriberCount())

	// never drained: fill the buffer, the next publish drops the subscriber
	for i := 0; i < defaultBufferSize+1; i++ {
		b.Publish(domain.Event{Type: domain.EventSampleIngested, OrgID: "org-a", Payload: i})
	}

	assert.Equal(t, 0, b.SubscriberCount())
	// channel was closed on drop; drain to the closed marker
	for range slow.C {
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	sub := b.Subscribe("org-a")
	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // second call is a no-op
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestPublish_NeverBlocksPublisher(t *testing.T) {
	b := New(zap.NewNop())
	defer b.Close()

	b.Subscribe("org-a") // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*3; i++ {
			b.Publish(domain.Event{Type: domain.EventSampleIngested, OrgID: "org-a"})
		}
		close(done)
	}()
	<-done
}
