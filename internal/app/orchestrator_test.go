package app_test

import (
	"context"
	"testing"
	"time"

	"campmap/internal/app"
	"campmap/internal/domain"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("pass did not finish")
	}
}

func TestOrchestrator_SharedAddressHitsGeocoderOnce(t *testing.T) {
	geo := newFakeGeocoder()
	geo.results["Oliwa, Gdańsk"] = domain.Coordinates{Lat: 54.41, Lng: 18.56}
	mc := newMemCache()
	o := app.NewOrchestrator(geo, app.NewGeoCache(mc, 0), 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{
		offer("a", "Oliwa, Gdańsk"),
		offer("b", "oliwa, gdańsk"),
	}))

	if geo.total() != 1 {
		t.Fatalf("expected one geocoder call, got %d", geo.total())
	}
	for _, id := range []string{"a", "b"} {
		r := o.State(id)
		if r.Status != domain.StatusResolved || r.Coords == nil || r.Coords.Lat != 54.41 {
			t.Fatalf("%s: %+v", id, r)
		}
	}
	if mc.setCount() != 1 {
		t.Fatalf("expected one cache write, got %d", mc.setCount())
	}
}

func TestOrchestrator_SiblingReuseWithoutCache(t *testing.T) {
	geo := newFakeGeocoder()
	geo.results["Mokotów"] = domain.Coordinates{Lat: 52.19, Lng: 21.02}
	o := app.NewOrchestrator(geo, nil, 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "Mokotów"), offer("b", "Mokotów")}))
	if geo.total() != 1 || o.State("b").Status != domain.StatusResolved {
		t.Fatalf("calls=%d b=%+v", geo.total(), o.State("b"))
	}
}

func TestOrchestrator_FailureIsNotCached(t *testing.T) {
	geo := newFakeGeocoder()
	mc := newMemCache()
	o := app.NewOrchestrator(geo, app.NewGeoCache(mc, 0), 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "Nowhere")}))

	r := o.State("a")
	if r.Status != domain.StatusFailed || r.Coords != nil || r.Message != "ZERO_RESULTS" {
		t.Fatalf("unexpected %+v", r)
	}
	if mc.setCount() != 0 {
		t.Fatalf("failure must not be cached")
	}
}

func TestOrchestrator_CacheHitSkipsGeocoder(t *testing.T) {
	geo := newFakeGeocoder()
	mc := newMemCache()
	gc := app.NewGeoCache(mc, 0)
	gc.Put(context.Background(), "Oliwa", domain.Coordinates{Lat: 1, Lng: 2})
	o := app.NewOrchestrator(geo, gc, 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "Oliwa")}))
	if geo.total() != 0 || o.State("a").Status != domain.StatusResolved {
		t.Fatalf("calls=%d state=%+v", geo.total(), o.State("a"))
	}
}

func TestOrchestrator_CacheFaultFallsThrough(t *testing.T) {
	geo := newFakeGeocoder()
	geo.results["Oliwa"] = domain.Coordinates{Lat: 1, Lng: 2}
	mc := newMemCache()
	mc.failGet, mc.failSet = true, true
	o := app.NewOrchestrator(geo, app.NewGeoCache(mc, 0), 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "Oliwa")}))
	if o.State("a").Status != domain.StatusResolved {
		t.Fatalf("cache fault should not fail the offer: %+v", o.State("a"))
	}
}

func TestOrchestrator_InFlightVisible(t *testing.T) {
	geo := newFakeGeocoder()
	geo.block["slow"] = true
	geo.results["slow"] = domain.Coordinates{Lat: 1, Lng: 1}
	o := app.NewOrchestrator(geo, nil, 0)
	defer o.Close()

	done := o.Start(context.Background(), []domain.Offer{offer("a", "slow"), offer("b", "next")})
	<-geo.called
	if s := o.State("a").Status; s != domain.StatusInFlight {
		t.Fatalf("a: %s", s)
	}
	if s := o.State("b").Status; s != domain.StatusNotStarted {
		t.Fatalf("b: %s", s)
	}
	close(geo.release)
	wait(t, done)
	if o.State("a").Status != domain.StatusResolved || o.State("b").Status != domain.StatusFailed {
		t.Fatalf("a=%+v b=%+v", o.State("a"), o.State("b"))
	}
}

func TestOrchestrator_RetiredPassNeverWrites(t *testing.T) {
	geo := newFakeGeocoder()
	geo.block["old address"] = true
	geo.results["old address"] = domain.Coordinates{Lat: 10, Lng: 10}
	geo.results["new address"] = domain.Coordinates{Lat: 20, Lng: 20}
	o := app.NewOrchestrator(geo, nil, 0)
	defer o.Close()

	first := o.Start(context.Background(), []domain.Offer{offer("a", "old address")})
	<-geo.called

	second := o.Start(context.Background(), []domain.Offer{offer("a", "new address")})
	wait(t, second)
	close(geo.release)
	wait(t, first)

	r := o.State("a")
	if r.Status != domain.StatusResolved || r.Coords.Lat != 20 {
		t.Fatalf("stale pass overwrote state: %+v", r)
	}
}

func TestOrchestrator_RestartReclaimsInFlight(t *testing.T) {
	geo := newFakeGeocoder()
	geo.block["slow"] = true
	geo.results["slow"] = domain.Coordinates{Lat: 5, Lng: 5}
	o := app.NewOrchestrator(geo, nil, 0)
	defer o.Close()

	list := []domain.Offer{offer("a", "slow")}
	first := o.Start(context.Background(), list)
	<-geo.called
	second := o.Start(context.Background(), list)
	close(geo.release)
	wait(t, first)
	wait(t, second)

	if r := o.State("a"); r.Status != domain.StatusResolved {
		t.Fatalf("offer stuck after restart: %+v", r)
	}
}

func TestOrchestrator_ReconcilesList(t *testing.T) {
	geo := newFakeGeocoder()
	geo.results["x"] = domain.Coordinates{Lat: 1, Lng: 1}
	geo.results["y"] = domain.Coordinates{Lat: 2, Lng: 2}
	o := app.NewOrchestrator(geo, nil, 0)
	defer o.Close()

	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "x"), offer("b", "x2")}))
	calls := geo.total()

	// same address keeps its result; removed offers are forgotten
	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "x")}))
	if geo.total() != calls {
		t.Fatalf("unchanged offer was looked up again")
	}
	if _, ok := o.States()["b"]; ok {
		t.Fatalf("removed offer still tracked")
	}
	if o.State("b").Status != domain.StatusNotStarted {
		t.Fatalf("unknown id must read as not-started")
	}

	// an address edit starts over
	wait(t, o.Start(context.Background(), []domain.Offer{offer("a", "y")}))
	if r := o.State("a"); r.Coords == nil || r.Coords.Lat != 2 {
		t.Fatalf("address change not re-resolved: %+v", r)
	}
}

func TestOrchestrator_Close(t *testing.T) {
	geo := newFakeGeocoder()
	o := app.NewOrchestrator(geo, nil, time.Hour)
	done := o.Start(context.Background(), []domain.Offer{offer("a", "x"), offer("b", "y")})
	<-geo.called
	o.Close()
	wait(t, done)

	wait(t, o.Start(context.Background(), []domain.Offer{offer("c", "z")}))
	if geo.total() != 1 {
		t.Fatalf("closed orchestrator kept working: %d calls", geo.total())
	}
}
