package registry

import "testing"

func TestTrackerSeesExistingService(t *testing.T) {
	r := New()

	if _, err := r.Register("store", "a", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tr := r.Track("store")
	defer tr.Close()

	if got := tr.Get(); got != "a" {
		t.Errorf("Get() = %v, want a", got)
	}
}

func TestTrackerFollowsChanges(t *testing.T) {
	r := New()

	tr := r.Track("store")
	defer tr.Close()

	if got := tr.Get(); got != nil {
		t.Errorf("Get() before registration = %v, want nil", got)
	}

	reg, err := r.Register("store", "a", nil)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if got := tr.Get(); got != "a" {
		t.Errorf("Get() after registration = %v, want a", got)
	}

	if err := reg.Unregister(); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}
	if got := tr.Get(); got != nil {
		t.Errorf("Get() after unregistration = %v, want nil", got)
	}

	// Re-registration under the same name is picked up.
	if _, err := r.Register("store", "b", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if got := tr.Get(); got != "b" {
		t.Errorf("Get() after re-registration = %v, want b", got)
	}
}

func TestTrackerClose(t *testing.T) {
	r := New()

	if _, err := r.Register("store", "a", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tr := r.Track("store")
	tr.Close()

	if got := tr.Get(); got != nil {
		t.Errorf("Get() after Close = %v, want nil", got)
	}

	// Closed trackers ignore later events.
	if _, err := r.Register("other", "b", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// Double Close is a no-op.
	tr.Close()
}

func TestTrackerOnClosedRegistry(t *testing.T) {
	r := New()

	if _, err := r.Register("store", "a", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tr := r.Track("store")
	defer tr.Close()

	r.Close()
	if got := tr.Get(); got != nil {
		t.Errorf("Get() after registry Close = %v, want nil", got)
	}
}

func TestTrackerIgnoresOtherNames(t *testing.T) {
	r := New()

	tr := r.Track("store")
	defer tr.Close()

	if _, err := r.Register("other", "b", nil); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if got := tr.Get(); got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestOpenTrackersCount(t *testing.T) {
	r := New()

	if got := r.OpenTrackers(); got != 0 {
		t.Fatalf("OpenTrackers() = %d, want 0", got)
	}

	t1 := r.Track("a")
	t2 := r.Track("b")
	if got := r.OpenTrackers(); got != 2 {
		t.Fatalf("OpenTrackers() = %d, want 2", got)
	}

	t1.Close()
	if got := r.OpenTrackers(); got != 1 {
		t.Fatalf("OpenTrackers() after Close = %d, want 1", got)
	}

	// Double Close must not decrement twice.
	t1.Close()
	if got := r.OpenTrackers(); got != 1 {
		t.Fatalf("OpenTrackers() after double Close = %d, want 1", got)
	}

	t2.Close()
	if got := r.OpenTrackers(); got != 0 {
		t.Fatalf("OpenTrackers() = %d, want 0", got)
	}
}
