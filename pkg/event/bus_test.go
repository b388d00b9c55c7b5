package event_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/event"
	"github.com/stackb/scriptbundles/pkg/testutil"
)

func TestBusElementEvents(t *testing.T) {
	owner := bundle.NewBundleElement("ruby", "/app/ruby/bundle.star", "/app/ruby", bundle.Application)
	attached := bundle.NewCommandElement("attached", "/app/ruby/commands/a.star")
	owner.AddElement(attached)
	detached := bundle.NewCommandElement("detached", "/app/ruby/commands/d.star")

	for name, tc := range map[string]struct {
		fire func(bus *event.Bus)
		want []string
	}{
		"degenerate": {
			fire: func(bus *event.Bus) {},
		},
		"added": {
			fire: func(bus *event.Bus) { bus.FireElementAdded(attached) },
			want: []string{"element added attached"},
		},
		"deleted": {
			fire: func(bus *event.Bus) { bus.FireElementDeleted(attached) },
			want: []string{"element deleted attached"},
		},
		"modified is delete then add": {
			fire: func(bus *event.Bus) { bus.FireElementModified(attached) },
			want: []string{"element deleted attached", "element added attached"},
		},
		"bundle itself is never suppressed": {
			fire: func(bus *event.Bus) { bus.FireElementAdded(owner) },
			want: []string{"element added ruby"},
		},
		"detached member suppressed": {
			fire: func(bus *event.Bus) {
				bus.FireElementAdded(detached)
				bus.FireElementDeleted(detached)
				bus.FireElementModified(detached)
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			bus := event.NewBus()
			rec := testutil.NewRecordingListener()
			bus.SubscribeElementChanges(rec)
			tc.fire(bus)
			if diff := cmp.Diff(tc.want, rec.Events()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestBusLoadCycle(t *testing.T) {
	bus := event.NewBus()
	rec := testutil.NewRecordingListener()
	bus.SubscribeLoadCycle(rec)

	bus.FireScriptLoaded("a.star")
	bus.FireScriptReloaded("b.star")
	bus.FireScriptUnloaded("c.star")

	want := []string{"loaded a.star", "reloaded b.star", "reloaded c.star"}
	if diff := cmp.Diff(want, rec.Events()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestBusSubscriptionOrderAndUnsubscribe(t *testing.T) {
	bus := event.NewBus()
	var got []string
	first := bus.SubscribeLoadCycle(event.LoadCycleFuncs{
		Loaded: func(path string) { got = append(got, "first "+path) },
	})
	bus.SubscribeLoadCycle(event.LoadCycleFuncs{
		Loaded: func(path string) { got = append(got, "second "+path) },
	})

	bus.FireScriptLoaded("a")
	first.Unsubscribe()
	first.Unsubscribe()
	bus.FireScriptLoaded("b")

	want := []string{"first a", "second a", "second b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestBusNilListener(t *testing.T) {
	bus := event.NewBus()
	bus.SubscribeBundleChanges(nil).Unsubscribe()
	bus.SubscribeElementChanges(nil).Unsubscribe()
	bus.SubscribeLoadCycle(nil).Unsubscribe()
	bus.FireBundleAdded(bundle.NewBundleElement("x", "/x/bundle.star", "/x", bundle.User))
}

func TestBusReentrantListener(t *testing.T) {
	bus := event.NewBus()
	rec := testutil.NewRecordingListener()
	var sub event.Subscription
	sub = bus.SubscribeBundleChanges(event.BundleChangeFuncs{
		Added: func(b *bundle.BundleElement) {
			// subscribing and unsubscribing from a listener must not deadlock
			bus.SubscribeBundleChanges(rec)
			sub.Unsubscribe()
		},
	})

	b := bundle.NewBundleElement("x", "/x/bundle.star", "/x", bundle.User)
	bus.FireBundleAdded(b)
	bus.FireBundleAdded(b)

	want := []string{"added x@/x"}
	if diff := cmp.Diff(want, rec.Events()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
