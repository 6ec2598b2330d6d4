package services

import (
	"sync"
	"testing"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/storage"
)

type testEnv struct {
	users     *UserService
	profiles  *JSONProfileService
	donations *JSONDonationService
	requests  *JSONRequestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	users, err := NewUserService(store)
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	profiles, err := NewJSONProfileService(store)
	if err != nil {
		t.Fatalf("NewJSONProfileService: %v", err)
	}
	donations, err := NewJSONDonationService(store, users, profiles)
	if err != nil {
		t.Fatalf("NewJSONDonationService: %v", err)
	}
	requests, err := NewJSONRequestService(store, users, profiles)
	if err != nil {
		t.Fatalf("NewJSONRequestService: %v", err)
	}
	return &testEnv{users: users, profiles: profiles, donations: donations, requests: requests}
}

func (e *testEnv) register(t *testing.T, email, name string) *models.User {
	t.Helper()
	u, err := e.users.Register(&models.RegisterRequest{
		Email:    email,
		Password: "secret123",
		Name:     name,
	})
	if err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	return u
}

func donationFixture(title string) *models.CreateDonationRequest {
	return &models.CreateDonationRequest{
		Title:       title,
		Description: "Gently used, pickup only",
		Category:    "furniture",
		Condition:   "good",
		Location:    "Springfield",
	}
}

func TestDonationCreate(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "alice@example.com", "Alice")

	d, err := env.donations.Create(donor.ID, donationFixture("Oak table"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if d.Status != models.DonationAvailable {
		t.Errorf("status = %q, want %q", d.Status, models.DonationAvailable)
	}
	if d.DonorID != donor.ID {
		t.Errorf("donor id = %q, want %q", d.DonorID, donor.ID)
	}
	if d.DonorName != "Alice" {
		t.Errorf("donor name = %q, want Alice", d.DonorName)
	}
	if d.Tags == nil || len(d.Tags) != 0 {
		t.Errorf("tags = %v, want empty non-nil slice", d.Tags)
	}

	// Reads go through the same copy path and must keep tags non-nil too.
	fetched, err := env.donations.GetByID(d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Tags == nil || len(fetched.Tags) != 0 {
		t.Errorf("fetched tags = %v, want empty non-nil slice", fetched.Tags)
	}
	listed, err := env.donations.List("", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].Tags == nil {
		t.Errorf("listed tags = %v, want empty non-nil slice", listed)
	}

	prof, err := env.profiles.GetByUserID(donor.ID)
	if err != nil {
		t.Fatalf("GetByUserID after create: %v", err)
	}
	if prof.DonationsCount != 1 || prof.RequestsCount != 0 ||
		prof.CompletedDonations != 0 || prof.CompletedRequests != 0 {
		t.Errorf("profile counters = %+v, want donations_count=1 and the rest zero", prof)
	}
	if prof.DisplayName != "Alice" || prof.Location != "Springfield" {
		t.Errorf("profile seed = %q/%q, want Alice/Springfield", prof.DisplayName, prof.Location)
	}

	if _, err := env.donations.Create(donor.ID, donationFixture("Bookshelf")); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	prof, _ = env.profiles.GetByUserID(donor.ID)
	if prof.DonationsCount != 2 {
		t.Errorf("donations_count after second create = %d, want 2", prof.DonationsCount)
	}
}

func TestDonationCreateActorChecks(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.donations.Create("", donationFixture("Lamp")); err != ErrUnauthenticated {
		t.Errorf("empty actor: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := env.donations.Create("no-such-user", donationFixture("Lamp")); err != ErrActorNotFound {
		t.Errorf("unknown actor: err = %v, want ErrActorNotFound", err)
	}
}

func TestDonationDonorNameFallback(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "noname@example.com", "")

	d, err := env.donations.Create(donor.ID, donationFixture("Chair"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.DonorName != "noname@example.com" {
		t.Errorf("donor name = %q, want email fallback", d.DonorName)
	}
}

func TestDonationReserve(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")
	taker := env.register(t, "taker@example.com", "Taker")

	d, err := env.donations.Create(donor.ID, donationFixture("Winter coat"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := env.donations.Reserve(donor.ID, d.ID); err != ErrSelfAction {
		t.Errorf("self reserve: err = %v, want ErrSelfAction", err)
	}
	if _, err := env.donations.Reserve(taker.ID, "missing"); err != ErrDonationNotFound {
		t.Errorf("missing donation: err = %v, want ErrDonationNotFound", err)
	}

	got, err := env.donations.Reserve(taker.ID, d.ID)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got.Status != models.DonationReserved {
		t.Errorf("status = %q, want %q", got.Status, models.DonationReserved)
	}
	if got.ReservedBy != taker.ID {
		t.Errorf("reserved_by = %q, want %q", got.ReservedBy, taker.ID)
	}
	if got.ReservedAt == nil {
		t.Error("reserved_at not set")
	}

	if _, err := env.donations.Reserve(taker.ID, d.ID); err != ErrInvalidState {
		t.Errorf("double reserve: err = %v, want ErrInvalidState", err)
	}
}

func TestDonationReserveConcurrent(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")

	d, err := env.donations.Create(donor.ID, donationFixture("Bike"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const contenders = 8
	takers := make([]*models.User, contenders)
	for i := range takers {
		takers[i] = env.register(t, string(rune('a'+i))+"@example.com", "Taker")
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.donations.Reserve(takers[i].ID, d.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case ErrInvalidState:
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestDonationComplete(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")
	taker := env.register(t, "taker@example.com", "Taker")

	d, err := env.donations.Create(donor.ID, donationFixture("Desk"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.donations.Reserve(taker.ID, d.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if _, err := env.donations.Complete(taker.ID, d.ID); err != ErrForbidden {
		t.Errorf("non-donor complete: err = %v, want ErrForbidden", err)
	}

	got, err := env.donations.Complete(donor.ID, d.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != models.DonationCompleted {
		t.Errorf("status = %q, want %q", got.Status, models.DonationCompleted)
	}

	prof, err := env.profiles.GetByUserID(donor.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if prof.CompletedDonations != 1 {
		t.Errorf("completed_donations = %d, want 1", prof.CompletedDonations)
	}
}

func TestDonationCompleteWithoutReserve(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")

	d, err := env.donations.Create(donor.ID, donationFixture("Blender"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Hand-offs arranged out of band: the donor completes straight from
	// available.
	got, err := env.donations.Complete(donor.ID, d.ID)
	if err != nil {
		t.Fatalf("Complete from available: %v", err)
	}
	if got.Status != models.DonationCompleted {
		t.Errorf("status = %q, want %q", got.Status, models.DonationCompleted)
	}
}

func TestDonationList(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")
	taker := env.register(t, "taker@example.com", "Taker")

	mk := func(title, category string) *models.Donation {
		req := donationFixture(title)
		req.Category = category
		d, err := env.donations.Create(donor.ID, req)
		if err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
		return d
	}

	coat := mk("Winter coat", "clothing")
	mk("Coffee table", "furniture")
	mk("Table lamp", "furniture")

	if _, err := env.donations.Reserve(taker.ID, coat.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	tests := []struct {
		name       string
		category   string
		search     string
		wantTitles []string
	}{
		{"all available, newest first", "", "", []string{"Table lamp", "Coffee table"}},
		{"all sentinel", "all", "", []string{"Table lamp", "Coffee table"}},
		{"category filter", "furniture", "", []string{"Table lamp", "Coffee table"}},
		{"category without matches", "books", "", []string{}},
		{"search is case-insensitive", "", "TABLE", []string{"Table lamp", "Coffee table"}},
		{"search narrowed by category", "furniture", "lamp", []string{"Table lamp"}},
		{"search excludes non-available", "", "coat", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.donations.List(tt.category, tt.search)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("got %d donations, want %d", len(got), len(tt.wantTitles))
			}
			for i, want := range tt.wantTitles {
				if got[i].Title != want {
					t.Errorf("result[%d] = %q, want %q", i, got[i].Title, want)
				}
			}
		})
	}
}

func TestDonationListByDonor(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")
	taker := env.register(t, "taker@example.com", "Taker")

	first, err := env.donations.Create(donor.ID, donationFixture("First"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.donations.Create(donor.ID, donationFixture("Second")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.donations.Reserve(taker.ID, first.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	got, err := env.donations.ListByDonor(donor.ID)
	if err != nil {
		t.Fatalf("ListByDonor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d donations, want 2 (any status)", len(got))
	}
	if got[0].Title != "Second" || got[1].Title != "First" {
		t.Errorf("order = %q, %q; want newest first", got[0].Title, got[1].Title)
	}

	empty, err := env.donations.ListByDonor("")
	if err != nil {
		t.Fatalf("ListByDonor(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty actor: got %d donations, want 0", len(empty))
	}
}

func TestDonationReload(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "donor@example.com", "Donor")

	if _, err := env.donations.Create(donor.ID, donationFixture("Old chair")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.donations.Create(donor.ID, donationFixture("New chair")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A fresh service over the same store keeps the data and continues
	// the insertion sequence, so ordering survives restarts.
	reloaded, err := NewJSONDonationService(env.donations.store, env.users, env.profiles)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := reloaded.Create(donor.ID, donationFixture("Newest chair")); err != nil {
		t.Fatalf("Create after reload: %v", err)
	}

	got, err := reloaded.List("", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Newest chair", "New chair", "Old chair"}
	if len(got) != len(want) {
		t.Fatalf("got %d donations, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("result[%d] = %q, want %q", i, got[i].Title, title)
		}
	}
}

// Two donors, one exchange each way: the counters end up attributed to
// the right side of each hand-off.
func TestDonationExchangeScenario(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	da, err := env.donations.Create(alice.ID, donationFixture("Alice's sofa"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	db, err := env.donations.Create(bob.ID, donationFixture("Bob's stereo"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := env.donations.Reserve(bob.ID, da.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := env.donations.Complete(alice.ID, da.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := env.donations.Reserve(alice.ID, db.ID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := env.donations.Complete(bob.ID, db.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	for _, tc := range []struct {
		name string
		id   string
	}{
		{"alice", alice.ID},
		{"bob", bob.ID},
	} {
		prof, err := env.profiles.GetByUserID(tc.id)
		if err != nil {
			t.Fatalf("GetByUserID(%s): %v", tc.name, err)
		}
		if prof.DonationsCount != 1 || prof.CompletedDonations != 1 {
			t.Errorf("%s counters = %+v, want donations_count=1 completed_donations=1", tc.name, prof)
		}
	}

	avail, err := env.donations.List("", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(avail) != 0 {
		t.Errorf("available after both completed = %d, want 0", len(avail))
	}
}
