package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/internal/catalog"
	"github.com/suyogshakya/khajaghar-backend/internal/settings"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/pagination"
	"github.com/suyogshakya/khajaghar-backend/pkg/types"
)

type stubOrdersRepo struct {
	order      *models.Order
	updateRows int64
	updateErr  error

	createdLines []models.OrderLine
	lastFrom     enums.FulfillmentStatus
	lastTo       enums.FulfillmentStatus
	lastFilters  ListFilters
}

func (s *stubOrdersRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) CreateLines(_ context.Context, lines []models.OrderLine) error {
	s.createdLines = lines
	return nil
}

func (s *stubOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindDetail(_ context.Context, id uuid.UUID) (*Detail, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return &Detail{Order: *s.order, Lines: s.createdLines}, nil
}

func (s *stubOrdersRepo) List(_ context.Context, _ pagination.Params, filters ListFilters) (*List, error) {
	s.lastFilters = filters
	return &List{Orders: []models.Order{}}, nil
}

func (s *stubOrdersRepo) UpdateStatusGuarded(_ context.Context, _ uuid.UUID, from, to enums.FulfillmentStatus, _ *time.Time) (int64, error) {
	s.lastFrom = from
	s.lastTo = to
	if s.updateRows > 0 && s.order != nil {
		s.order.Status = to
	}
	return s.updateRows, s.updateErr
}

func (s *stubOrdersRepo) MarkPaidGuarded(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

type stubCatalogRepo struct {
	items []models.FoodItem
}

func (s *stubCatalogRepo) WithTx(*gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) CreateCategory(context.Context, *models.Category) (*models.Category, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListCategories(context.Context) ([]models.Category, error) {
	return nil, nil
}

func (s *stubCatalogRepo) FindCategoryByID(context.Context, uuid.UUID) (*models.Category, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateFoodItem(context.Context, *models.FoodItem) (*models.FoodItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) UpdateFoodItem(context.Context, uuid.UUID, map[string]any) error {
	return nil
}

func (s *stubCatalogRepo) FindFoodItemByID(_ context.Context, id uuid.UUID) (*models.FoodItem, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindFoodItemsByIDs(_ context.Context, ids []uuid.UUID) ([]models.FoodItem, error) {
	var found []models.FoodItem
	for _, id := range ids {
		for _, item := range s.items {
			if item.ID == id {
				found = append(found, item)
			}
		}
	}
	return found, nil
}

func (s *stubCatalogRepo) ListFoodItems(context.Context, catalog.FoodItemFilters) ([]models.FoodItem, error) {
	return s.items, nil
}

type stubSettingsService struct {
	setting models.ShopSetting
}

func (s *stubSettingsService) Get(context.Context) (*models.ShopSetting, error) {
	copied := s.setting
	return &copied, nil
}

func (s *stubSettingsService) Update(context.Context, settings.UpdateInput) (*models.ShopSetting, error) {
	return &s.setting, nil
}

type stubCartClearer struct {
	cleared bool
}

func (s *stubCartClearer) Clear(context.Context, uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testDeliveryDetails() types.DeliveryDetails {
	return types.DeliveryDetails{
		Name:    "Suyog",
		Phone:   "9800000000",
		Address: "Lazimpat",
		City:    "Kathmandu",
	}
}

func buildOrderService(t *testing.T, repo *stubOrdersRepo, catalogRepo *stubCatalogRepo) (Service, *stubCartClearer) {
	t.Helper()
	settingsSvc := &stubSettingsService{
		setting: models.ShopSetting{
			TaxRate:         decimal.RequireFromString("0.08"),
			DeliveryEnabled: true,
			DeliveryCharge:  decimal.RequireFromString("3.99"),
		},
	}
	clearer := &stubCartClearer{}
	svc, err := NewService(repo, catalogRepo, settingsSvc, clearer, stubTxRunner{})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, clearer
}

func TestServiceCreatePricesFromCatalog(t *testing.T) {
	itemID := uuid.New()
	catalogRepo := &stubCatalogRepo{items: []models.FoodItem{{
		ID:          itemID,
		Name:        "Chicken Momo",
		Price:       decimal.RequireFromString("9.99"),
		IsAvailable: true,
	}}}
	repo := &stubOrdersRepo{}
	svc, clearer := buildOrderService(t, repo, catalogRepo)

	detail, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Lines:           []CreateLineInput{{FoodItemID: itemID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCash,
		DeliveryDetails: testDeliveryDetails(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if !detail.Order.Subtotal.Equal(decimal.RequireFromString("19.98")) {
		t.Fatalf("expected subtotal 19.98, got %s", detail.Order.Subtotal)
	}
	if !detail.Order.TaxAmount.Equal(decimal.RequireFromString("1.60")) {
		t.Fatalf("expected tax 1.60, got %s", detail.Order.TaxAmount)
	}
	if !detail.Order.Total.Equal(decimal.RequireFromString("25.57")) {
		t.Fatalf("expected total 25.57, got %s", detail.Order.Total)
	}
	if detail.Order.Status != enums.FulfillmentStatusPending {
		t.Fatalf("expected PENDING status, got %s", detail.Order.Status)
	}
	if detail.Order.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Fatalf("expected UNPAID payment status, got %s", detail.Order.PaymentStatus)
	}
	if len(detail.Lines) != 1 || !detail.Lines[0].UnitPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("expected snapshot line at catalog price, got %+v", detail.Lines)
	}
	if !clearer.cleared {
		t.Fatalf("expected cart to be cleared after checkout")
	}
}

func TestServiceCreateUnknownItem(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := buildOrderService(t, repo, &stubCatalogRepo{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Lines:           []CreateLineInput{{FoodItemID: uuid.New(), Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCash,
		DeliveryDetails: testDeliveryDetails(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if repo.order != nil {
		t.Fatalf("expected no order to be created")
	}
}

func TestServiceCreateUnavailableItem(t *testing.T) {
	itemID := uuid.New()
	catalogRepo := &stubCatalogRepo{items: []models.FoodItem{{
		ID:          itemID,
		Name:        "Sel Roti",
		Price:       decimal.RequireFromString("2.50"),
		IsAvailable: false,
	}}}
	svc, _ := buildOrderService(t, &stubOrdersRepo{}, catalogRepo)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		Lines:           []CreateLineInput{{FoodItemID: itemID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCash,
		DeliveryDetails: testDeliveryDetails(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestServiceCreateDuplicateLines(t *testing.T) {
	itemID := uuid.New()
	svc, _ := buildOrderService(t, &stubOrdersRepo{}, &stubCatalogRepo{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID: uuid.New(),
		Lines: []CreateLineInput{
			{FoodItemID: itemID, Quantity: 1},
			{FoodItemID: itemID, Quantity: 2},
		},
		PaymentMethod:   enums.PaymentMethodCash,
		DeliveryDetails: testDeliveryDetails(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceUpdateStatusAdminHappyPath(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:            orderID,
			UserID:        uuid.New(),
			Status:        enums.FulfillmentStatusPending,
			PaymentStatus: enums.PaymentStatusUnpaid,
		},
		updateRows: 1,
	}
	svc, _ := buildOrderService(t, repo, &stubCatalogRepo{})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     orderID,
		Target:      enums.FulfillmentStatusProcessing,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.FulfillmentStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", updated.Status)
	}
	if repo.lastFrom != enums.FulfillmentStatusPending {
		t.Fatalf("expected guarded update from PENDING, got %s", repo.lastFrom)
	}
}

func TestServiceUpdateStatusConcurrentConflict(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:            orderID,
			UserID:        uuid.New(),
			Status:        enums.FulfillmentStatusPending,
			PaymentStatus: enums.PaymentStatusUnpaid,
		},
		updateRows: 0,
	}
	svc, _ := buildOrderService(t, repo, &stubCatalogRepo{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     orderID,
		Target:      enums.FulfillmentStatusProcessing,
		ActorUserID: uuid.New(),
		ActorRole:   enums.UserRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict when guarded update hits zero rows, got %v", err)
	}
}

func TestServiceUpdateStatusBuyerRules(t *testing.T) {
	owner := uuid.New()
	orderID := uuid.New()

	newRepo := func(status enums.FulfillmentStatus, paid enums.PaymentStatus) *stubOrdersRepo {
		return &stubOrdersRepo{
			order: &models.Order{
				ID:            orderID,
				UserID:        owner,
				Status:        status,
				PaymentStatus: paid,
			},
			updateRows: 1,
		}
	}

	t.Run("owner cancels pending unpaid order", func(t *testing.T) {
		svc, _ := buildOrderService(t, newRepo(enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid), &stubCatalogRepo{})
		updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID:     orderID,
			Target:      enums.FulfillmentStatusCancelled,
			ActorUserID: owner,
			ActorRole:   enums.UserRoleUser,
		})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if updated.Status != enums.FulfillmentStatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", updated.Status)
		}
	})

	t.Run("buyer cannot advance fulfillment", func(t *testing.T) {
		svc, _ := buildOrderService(t, newRepo(enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid), &stubCatalogRepo{})
		_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID:     orderID,
			Target:      enums.FulfillmentStatusProcessing,
			ActorUserID: owner,
			ActorRole:   enums.UserRoleUser,
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		svc, _ := buildOrderService(t, newRepo(enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid), &stubCatalogRepo{})
		_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID:     orderID,
			Target:      enums.FulfillmentStatusCancelled,
			ActorUserID: uuid.New(),
			ActorRole:   enums.UserRoleUser,
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("owner cancels processing order", func(t *testing.T) {
		svc, _ := buildOrderService(t, newRepo(enums.FulfillmentStatusProcessing, enums.PaymentStatusUnpaid), &stubCatalogRepo{})
		updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID:     orderID,
			Target:      enums.FulfillmentStatusCancelled,
			ActorUserID: owner,
			ActorRole:   enums.UserRoleUser,
		})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if updated.Status != enums.FulfillmentStatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", updated.Status)
		}
	})

	t.Run("completed order can no longer be cancelled by buyer", func(t *testing.T) {
		svc, _ := buildOrderService(t, newRepo(enums.FulfillmentStatusCompleted, enums.PaymentStatusPaid), &stubCatalogRepo{})
		_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
			OrderID:     orderID,
			Target:      enums.FulfillmentStatusCancelled,
			ActorUserID: owner,
			ActorRole:   enums.UserRoleUser,
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}

func TestServiceListScopesNonAdminToOwnOrders(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, _ := buildOrderService(t, repo, &stubCatalogRepo{})

	userID := uuid.New()
	if _, err := svc.List(context.Background(), userID, enums.UserRoleUser, pagination.Params{}, ListFilters{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastFilters.UserID == nil || *repo.lastFilters.UserID != userID {
		t.Fatalf("expected list filtered to caller, got %+v", repo.lastFilters.UserID)
	}

	if _, err := svc.List(context.Background(), userID, enums.UserRoleAdmin, pagination.Params{}, ListFilters{}); err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if repo.lastFilters.UserID != nil {
		t.Fatalf("expected admin list unscoped, got %+v", repo.lastFilters.UserID)
	}
}
