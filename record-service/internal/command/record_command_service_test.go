package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

type fakeStore struct {
	records map[string]*models.TransactionRecord
}

func (f *fakeStore) Create(_ context.Context, r *models.TransactionRecord) error {
	f.records[r.ID] = r
	return nil
}
func (f *fakeStore) GetByID(_ context.Context, id string) (*models.TransactionRecord, error) {
	if r, ok := f.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, errs.ErrRecordNotFound
}
func (f *fakeStore) Update(_ context.Context, r *models.TransactionRecord) error {
	f.records[r.ID] = r
	return nil
}
func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.records, id)
	return nil
}

type fakeViews struct{ cached map[string]*models.RecordView }

func (f *fakeViews) CacheRecordView(_ context.Context, v *models.RecordView) { f.cached[v.ID] = v }
func (f *fakeViews) InvalidateRecordView(_ context.Context, id string)     { delete(f.cached, id) }

type fakeAccounts map[string]*models.AccountSnapshot

func (f fakeAccounts) GetAccount(_ context.Context, id string) (*models.AccountSnapshot, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, errs.ErrAccountNotFound
}

type fakeIndex struct {
	docs map[string]*models.RecordDocument
	err  error
}

func (f *fakeIndex) Index(_ context.Context, d *models.RecordDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs[d.ID] = d
	return nil
}
func (f *fakeIndex) Delete(_ context.Context, id string) error {
	delete(f.docs, id)
	return f.err
}

type published struct {
	stream, eventType string
	data              any
}

type recordingPublisher struct{ msgs []published }

func (p *recordingPublisher) Publish(_ context.Context, stream, eventType string, data any) (string, error) {
	p.msgs = append(p.msgs, published{stream, eventType, data})
	return "evt", nil
}

type harness struct {
	svc   *RecordCommandService
	store *fakeStore
	views *fakeViews
	index *fakeIndex
	pub   *recordingPublisher
}

func newHarness() *harness {
	h := &harness{
		store: &fakeStore{records: map[string]*models.TransactionRecord{}},
		views: &fakeViews{cached: map[string]*models.RecordView{}},
		index: &fakeIndex{docs: map[string]*models.RecordDocument{}},
		pub:   &recordingPublisher{},
	}
	accounts := fakeAccounts{
		"acc-mine":   {ID: "acc-mine", UserID: "usr-1"},
		"acc-theirs": {ID: "acc-theirs", UserID: "usr-2"},
	}
	h.svc = NewRecordCommandService(h.store, h.views, accounts, h.index, h.pub)
	return h
}

func expense(amount string) cqrs.CreateRecordCommand {
	return cqrs.CreateRecordCommand{
		UserID: "usr-1", AccountID: "acc-mine", Amount: decimal.RequireFromString(amount),
		Type: models.RecordTypeExpense, Category: " groceries ", Description: "weekly shop",
	}
}

func TestCreateRecord(t *testing.T) {
	h := newHarness()
	view, err := h.svc.CreateRecord(context.Background(), expense("42.10"))
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if !utils.ValidateRecordID(view.ID) {
		t.Errorf("ID = %q", view.ID)
	}
	if view.Category != "groceries" {
		t.Errorf("Category = %q", view.Category)
	}
	if view.OccurredAt.IsZero() {
		t.Error("OccurredAt not defaulted")
	}
	if h.views.cached[view.ID] == nil || h.index.docs[view.ID] == nil {
		t.Error("record not mirrored to cache and index")
	}

	if len(h.pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(h.pub.msgs))
	}
	created := h.pub.msgs[0]
	if created.stream != events.RecordEventsStream || created.eventType != events.RecordCreated {
		t.Errorf("first message = %s/%s", created.stream, created.eventType)
	}
	if delta := created.data.(events.RecordEvent).Delta; !delta.Equal(decimal.RequireFromString("-42.10")) {
		t.Errorf("delta = %s", delta)
	}
	analysis := h.pub.msgs[1]
	if analysis.stream != events.AnalysisQueue {
		t.Errorf("analysis stream = %s", analysis.stream)
	}
	if req := analysis.data.(events.AnalysisRequest); req.RecordID != view.ID || req.UserID != "usr-1" {
		t.Errorf("analysis request = %+v", req)
	}
}

func TestCreateRecordRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*cqrs.CreateRecordCommand)
		wantErr error
	}{
		{"zero amount", func(c *cqrs.CreateRecordCommand) { c.Amount = decimal.Zero }, errs.ErrInvalidAmount},
		{"negative amount", func(c *cqrs.CreateRecordCommand) { c.Amount = decimal.NewFromInt(-1) }, errs.ErrInvalidAmount},
		{"more than four decimal places", func(c *cqrs.CreateRecordCommand) { c.Amount = decimal.RequireFromString("1.23456") }, errs.ErrInvalidAmount},
		{"rounds to zero", func(c *cqrs.CreateRecordCommand) { c.Amount = decimal.RequireFromString("0.00001") }, errs.ErrInvalidAmount},
		{"too large", func(c *cqrs.CreateRecordCommand) { c.Amount = decimal.New(1, 15) }, errs.ErrInvalidAmount},
		{"blank category", func(c *cqrs.CreateRecordCommand) { c.Category = "   " }, errs.ErrInvalidCategory},
		{"empty category", func(c *cqrs.CreateRecordCommand) { c.Category = "" }, errs.ErrInvalidCategory},
		{"unknown account", func(c *cqrs.CreateRecordCommand) { c.AccountID = "acc-none" }, errs.ErrAccountNotFound},
		{"someone else's account", func(c *cqrs.CreateRecordCommand) { c.AccountID = "acc-theirs" }, errs.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			cmd := expense("10")
			tt.mutate(&cmd)
			if _, err := h.svc.CreateRecord(context.Background(), cmd); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(h.store.records) != 0 || len(h.pub.msgs) != 0 {
				t.Error("rejected record had side effects")
			}
		})
	}
}

func TestCreateRecordAcceptsFourDecimalPlaces(t *testing.T) {
	h := newHarness()
	for _, amount := range []string{"0.0001", "1.2300", "999999999999999.9999"} {
		view, err := h.svc.CreateRecord(context.Background(), expense(amount))
		if err != nil {
			t.Errorf("CreateRecord(%s): %v", amount, err)
			continue
		}
		if !view.Amount.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("amount = %s, want %s", view.Amount, amount)
		}
	}
}

func TestCreateRecordSurvivesIndexFailure(t *testing.T) {
	h := newHarness()
	h.index.err = errors.New("cluster red")
	if _, err := h.svc.CreateRecord(context.Background(), expense("5")); err != nil {
		t.Fatalf("index failure leaked: %v", err)
	}
	if len(h.store.records) != 1 {
		t.Error("record not stored")
	}
}

func TestUpdateRecordDelta(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	view, _ := h.svc.CreateRecord(ctx, expense("30"))
	h.pub.msgs = nil

	income := models.RecordTypeIncome
	amount := decimal.NewFromInt(50)
	when := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	updated, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{
		RecordID: view.ID, RequestingUserID: "usr-1", Amount: &amount, Type: &income, OccurredAt: &when,
	})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if updated.Type != income || !updated.Amount.Equal(amount) || !updated.OccurredAt.Equal(when) {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Description != "weekly shop" {
		t.Error("untouched field changed")
	}

	ev := h.pub.msgs[0].data.(events.RecordEvent)
	// -30 -> +50
	if !ev.Delta.Equal(decimal.NewFromInt(80)) {
		t.Errorf("delta = %s, want 80", ev.Delta)
	}
	if ev.Previous == nil || ev.Previous.Type != models.RecordTypeExpense {
		t.Errorf("previous = %+v", ev.Previous)
	}
}

func TestUpdateRecordRejections(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	view, _ := h.svc.CreateRecord(ctx, expense("30"))

	zero := decimal.Zero
	if _, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{RecordID: view.ID, RequestingUserID: "usr-1", Amount: &zero}); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v", err)
	}
	fine := decimal.RequireFromString("0.00005")
	if _, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{RecordID: view.ID, RequestingUserID: "usr-1", Amount: &fine}); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Errorf("sub-cent amount error = %v", err)
	}
	for _, blank := range []string{"", "  \t"} {
		if _, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{RecordID: view.ID, RequestingUserID: "usr-1", Category: &blank}); !errors.Is(err, errs.ErrInvalidCategory) {
			t.Errorf("category %q error = %v", blank, err)
		}
	}
	if got := h.store.records[view.ID]; got.Category != "groceries" || !got.Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("rejected update changed record: %+v", got)
	}
	cat := "other"
	if _, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{RecordID: view.ID, RequestingUserID: "usr-2", Category: &cat}); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("non-owner error = %v", err)
	}
	if _, err := h.svc.UpdateRecord(ctx, cqrs.UpdateRecordCommand{RecordID: "rec-missing", RequestingUserID: "usr-1"}); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("missing record error = %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	cmd := expense("12")
	cmd.Type = models.RecordTypeIncome
	view, _ := h.svc.CreateRecord(ctx, cmd)
	h.pub.msgs = nil

	if err := h.svc.DeleteRecord(ctx, cqrs.DeleteRecordCommand{RecordID: view.ID, RequestingUserID: "usr-2"}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("non-owner delete error = %v", err)
	}
	if err := h.svc.DeleteRecord(ctx, cqrs.DeleteRecordCommand{RecordID: view.ID, RequestingUserID: "usr-1"}); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, ok := h.store.records[view.ID]; ok {
		t.Error("record still stored")
	}
	if _, ok := h.index.docs[view.ID]; ok {
		t.Error("record still indexed")
	}
	ev := h.pub.msgs[0]
	if ev.eventType != events.RecordDeleted || !ev.data.(events.RecordEvent).Delta.Equal(decimal.NewFromInt(-12)) {
		t.Errorf("delete event = %+v", ev)
	}
}
