package command

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

// ---- fakes ----

type fakeStore struct {
	users map[string]*models.User
}

func (f *fakeStore) Create(_ context.Context, u *models.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return errs.ErrUsernameTaken
		}
	}
	f.users[u.ID] = u
	return nil
}
func (f *fakeStore) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errs.ErrUserNotFound
}
func (f *fakeStore) Update(_ context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}
func (f *fakeStore) UpdatePassword(_ context.Context, id, hash string) error {
	f.users[id].PasswordHash = hash
	return nil
}
func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return errs.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeViews struct {
	cached    map[string]*models.UserView
	counts    map[string]int64
	processed map[string]bool
}

func newFakeViews() *fakeViews {
	return &fakeViews{cached: map[string]*models.UserView{}, counts: map[string]int64{}, processed: map[string]bool{}}
}

func (f *fakeViews) CacheUserView(_ context.Context, v *models.UserView) { f.cached[v.ID] = v }
func (f *fakeViews) InvalidateUserView(_ context.Context, id string)    { delete(f.cached, id) }
func (f *fakeViews) HasActiveAccounts(_ context.Context, id string) (bool, error) {
	return f.counts[id] > 0, nil
}
func (f *fakeViews) IncrAccountCount(_ context.Context, id string) error { f.counts[id]++; return nil }
func (f *fakeViews) DecrAccountCount(_ context.Context, id string) error {
	if f.counts[id] > 0 {
		f.counts[id]--
	}
	return nil
}
func (f *fakeViews) EventProcessed(_ context.Context, id string) bool { return f.processed[id] }
func (f *fakeViews) MarkEventProcessed(_ context.Context, id string)  { f.processed[id] = true }

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, _, eventType string, _ any) (string, error) {
	p.types = append(p.types, eventType)
	return "evt", nil
}

func newTestService() (*UserCommandService, *fakeStore, *fakeViews, *recordingPublisher) {
	store := &fakeStore{users: map[string]*models.User{}}
	views := newFakeViews()
	pub := &recordingPublisher{}
	return NewUserCommandService(store, views, pub), store, views, pub
}

func accountEvent(t *testing.T, id, eventType string, data any) events.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return events.Event{ID: id, Type: eventType, Data: raw}
}

// ---- tests ----

func TestCreateUser(t *testing.T) {
	svc, store, views, pub := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, cqrs.CreateUserCommand{
		Username: "alice", Email: "Alice@Example.com", Password: "securepass123",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !utils.ValidateUserID(user.ID) {
		t.Errorf("ID = %q", user.ID)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email not normalised: %q", user.Email)
	}
	if user.DisplayName != "alice" {
		t.Errorf("DisplayName default = %q, want username", user.DisplayName)
	}
	if user.Role != models.RoleUser {
		t.Errorf("Role = %q", user.Role)
	}
	if !utils.CheckPassword("securepass123", store.users[user.ID].PasswordHash) {
		t.Error("stored hash does not match password")
	}
	if views.cached[user.ID] == nil {
		t.Error("view not cached")
	}
	if len(pub.types) != 1 || pub.types[0] != events.UserCreated {
		t.Errorf("published = %v", pub.types)
	}

	if _, err := svc.CreateUser(ctx, cqrs.CreateUserCommand{Username: "alice", Email: "b@example.com", Password: "securepass123"}); !errors.Is(err, errs.ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	user, _ := svc.CreateUser(ctx, cqrs.CreateUserCommand{Username: "bob", Email: "bob@example.com", Password: "first-password"})

	err := svc.ChangePassword(ctx, cqrs.ChangePasswordCommand{UserID: user.ID, CurrentPassword: "wrong", NewPassword: "second-password"})
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("wrong current password error = %v", err)
	}
	if err := svc.ChangePassword(ctx, cqrs.ChangePasswordCommand{UserID: user.ID, CurrentPassword: "first-password", NewPassword: "second-password"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if !utils.CheckPassword("second-password", store.users[user.ID].PasswordHash) {
		t.Error("password not updated")
	}
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name     string
		accounts int64
		cmd      func(id string) cqrs.DeleteUserCommand
		wantErr  error
	}{
		{"self without accounts", 0, func(id string) cqrs.DeleteUserCommand {
			return cqrs.DeleteUserCommand{UserID: id, RequestingUserID: id}
		}, nil},
		{"self with accounts", 2, func(id string) cqrs.DeleteUserCommand {
			return cqrs.DeleteUserCommand{UserID: id, RequestingUserID: id}
		}, errs.ErrUserHasAccounts},
		{"other user", 0, func(id string) cqrs.DeleteUserCommand {
			return cqrs.DeleteUserCommand{UserID: id, RequestingUserID: "usr-other", RequestingRole: models.RoleUser}
		}, errs.ErrForbidden},
		{"admin", 0, func(id string) cqrs.DeleteUserCommand {
			return cqrs.DeleteUserCommand{UserID: id, RequestingUserID: "usr-admin", RequestingRole: models.RoleAdmin}
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, views, _ := newTestService()
			ctx := context.Background()
			user, _ := svc.CreateUser(ctx, cqrs.CreateUserCommand{Username: "carol", Email: "c@example.com", Password: "securepass123"})
			views.counts[user.ID] = tt.accounts

			err := svc.DeleteUser(ctx, tt.cmd(user.ID))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DeleteUser error = %v, want %v", err, tt.wantErr)
			}
			_, stillThere := store.users[user.ID]
			if (tt.wantErr == nil) == stillThere {
				t.Errorf("user present after delete = %v", stillThere)
			}
		})
	}
}

func TestHandleAccountEvent(t *testing.T) {
	svc, _, views, _ := newTestService()
	ctx := context.Background()

	created := accountEvent(t, "evt-1", events.AccountCreated, events.AccountCreatedEvent{AccountID: "acc-1", UserID: "usr-1"})
	if err := svc.HandleAccountEvent(ctx, created); err != nil {
		t.Fatal(err)
	}
	// Redelivery must not double count.
	if err := svc.HandleAccountEvent(ctx, created); err != nil {
		t.Fatal(err)
	}
	if views.counts["usr-1"] != 1 {
		t.Fatalf("count after duplicate create = %d, want 1", views.counts["usr-1"])
	}

	deleted := accountEvent(t, "evt-2", events.AccountDeleted, events.AccountDeletedEvent{AccountID: "acc-1", UserID: "usr-1"})
	if err := svc.HandleAccountEvent(ctx, deleted); err != nil {
		t.Fatal(err)
	}
	if views.counts["usr-1"] != 0 {
		t.Errorf("count after delete = %d, want 0", views.counts["usr-1"])
	}

	ignored := accountEvent(t, "evt-3", events.BalanceUpdated, events.BalanceUpdatedEvent{AccountID: "acc-1"})
	if err := svc.HandleAccountEvent(ctx, ignored); err != nil {
		t.Errorf("unrelated event error = %v", err)
	}
	if views.processed["evt-3"] {
		t.Error("unrelated events should not be marked")
	}
}
