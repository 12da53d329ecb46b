package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealrounds/mealrounds-backend/internal/clients"
	"github.com/mealrounds/mealrounds-backend/internal/ordering"
	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
)

type fakeClientLister struct {
	list []models.Client
}

func (f *fakeClientLister) WithTx(tx *gorm.DB) clients.Repository { return f }

func (f *fakeClientLister) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeClientLister) ListActive(ctx context.Context) ([]models.Client, error) {
	return f.list, nil
}

func (f *fakeClientLister) UpdateVendorSnapshots(ctx context.Context, id uuid.UUID, food []models.FoodVendorSnapshot, boxes []models.BoxVendorSnapshot) error {
	return nil
}

type recordingReconciler struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]ordering.Config
	failFor map[uuid.UUID]bool
}

func (r *recordingReconciler) Reconcile(ctx context.Context, clientID uuid.UUID, cfg ordering.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[uuid.UUID]ordering.Config{}
	}
	r.calls[clientID] = cfg
	if r.failFor[clientID] {
		return errors.New("simulated reconcile failure")
	}
	return nil
}

func snapshotClient(name, weekday string) models.Client {
	return models.Client{
		ID:     uuid.New(),
		Name:   name,
		Active: true,
		FoodVendors: []models.FoodVendorSnapshot{
			{VendorID: uuid.New(), Weekday: weekday},
		},
	}
}

func TestPropagateDateSyncsActiveClients(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	client1 := snapshotClient("Ada", "Thursday")
	client2 := snapshotClient("Grace", "Monday")

	repo := &fakeCatalogRepo{
		defaults: []models.CatalogEntry{entry(nil, "Milk", 2, "1.50", 1)},
		byClient: map[uuid.UUID][]models.CatalogEntry{
			client1.ID: {entry(&client1.ID, "Milk", 5, "1.75", 1)},
		},
	}
	catalogSvc, _ := NewService(repo)
	reconciler := &recordingReconciler{}

	svc, err := NewPropagationService(
		catalogSvc,
		&fakeClientLister{list: []models.Client{client1, client2}},
		reconciler,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("NewPropagationService: %v", err)
	}

	report, err := svc.PropagateDate(context.Background(), date, "catalog-sync")
	if err != nil {
		t.Fatalf("PropagateDate: %v", err)
	}
	if report.Synced != 2 || report.Failed != 0 {
		t.Fatalf("report = %+v, want both clients synced", report)
	}

	cfg1 := reconciler.calls[client1.ID]
	if cfg1.Kind != enums.ServiceKindFood || cfg1.Food == nil {
		t.Fatalf("client1 config = %+v, want food config", cfg1)
	}
	items := cfg1.Food.Partitions["Thursday"][0].Items
	if len(items) != 1 || items[0].Quantity != 5 {
		t.Fatalf("client1 items = %+v, want override qty 5", items)
	}

	cfg2 := reconciler.calls[client2.ID]
	items2 := cfg2.Food.Partitions["Monday"][0].Items
	if len(items2) != 1 || items2[0].Quantity != 2 {
		t.Fatalf("client2 items = %+v, want default qty 2", items2)
	}
}

func TestPropagateDateSkipsClientsWithoutSnapshot(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	bare := models.Client{ID: uuid.New(), Name: "NoVendors", Active: true}

	repo := &fakeCatalogRepo{defaults: []models.CatalogEntry{entry(nil, "Milk", 2, "1.50", 1)}}
	catalogSvc, _ := NewService(repo)
	reconciler := &recordingReconciler{}

	svc, _ := NewPropagationService(
		catalogSvc,
		&fakeClientLister{list: []models.Client{bare}},
		reconciler,
		logger.New(logger.Options{ServiceName: "test"}),
	)

	report, err := svc.PropagateDate(context.Background(), date, "catalog-sync")
	if err != nil {
		t.Fatalf("PropagateDate: %v", err)
	}
	if report.Skipped != 1 || report.Synced != 0 {
		t.Fatalf("report = %+v, want single skip", report)
	}
	if len(reconciler.calls) != 0 {
		t.Fatal("reconciler must not be called for clients without a vendor snapshot")
	}
}

func TestPropagateDateCollectsPerClientFailures(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	good := snapshotClient("Ada", "Thursday")
	bad := snapshotClient("Grace", "Monday")

	repo := &fakeCatalogRepo{defaults: []models.CatalogEntry{entry(nil, "Milk", 2, "1.50", 1)}}
	catalogSvc, _ := NewService(repo)
	reconciler := &recordingReconciler{failFor: map[uuid.UUID]bool{bad.ID: true}}

	svc, _ := NewPropagationService(
		catalogSvc,
		&fakeClientLister{list: []models.Client{good, bad}},
		reconciler,
		logger.New(logger.Options{ServiceName: "test"}),
	)

	report, err := svc.PropagateDate(context.Background(), date, "catalog-sync")
	if err != nil {
		t.Fatalf("PropagateDate: %v", err)
	}
	if report.Synced != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v, want one success and one failure", report)
	}
	if report.Err == nil {
		t.Fatal("report must carry the per-client error")
	}
}
