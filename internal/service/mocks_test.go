package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/repo"
)

// fakeTxRunner 直接以nil事务执行fn。失败路径由底层仓储mock控制，
// 这里不模拟提交/回滚语义。
type fakeTxRunner struct {
	beginErr error
}

func (f *fakeTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

// fakeStockRepo 是内存版库存台账，复刻 SQL 实现的关键语义：
// 非负下限、台账行缺失报错、变动追加为审计日志。
// 和数据库的条件更新一样，ApplyMovement 在锁内检查并应用增量。
type fakeStockRepo struct {
	mu        sync.Mutex
	records   map[int64]*domain.StockRecord
	owners    map[int64]int64 // productID -> ownerID
	movements []*domain.StockMovement
	lowStock  []*domain.LowStockAlert
	applyErr  error
	nextID    int64
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		records: make(map[int64]*domain.StockRecord),
		owners:  make(map[int64]int64),
	}
}

func (f *fakeStockRepo) seed(ownerID, productID int64, stock int) {
	f.nextID++
	f.records[productID] = &domain.StockRecord{
		ID:           f.nextID,
		ProductID:    productID,
		CurrentStock: stock,
	}
	f.owners[productID] = ownerID
}

func (f *fakeStockRepo) Create(ctx context.Context, q repo.Querier, record *domain.StockRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.records[record.ProductID] = record
	return nil
}

func (f *fakeStockRepo) GetByProductID(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := f.records[productID]
	if record == nil {
		return nil, nil
	}
	snapshot := *record
	return &snapshot, nil
}

func (f *fakeStockRepo) GetByProductIDForOwner(ctx context.Context, ownerID, productID int64) (*domain.StockRecord, error) {
	if f.owners[productID] != ownerID {
		return nil, nil
	}
	return f.GetByProductID(ctx, productID)
}

func (f *fakeStockRepo) ApplyMovement(ctx context.Context, q repo.Querier, m *domain.StockMovement) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	if err := m.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record := f.records[m.ProductID]
	if record == nil {
		return domain.ErrStockRecordNotFound
	}

	delta := m.Delta()
	if record.CurrentStock+delta < 0 {
		return &domain.InsufficientStockError{
			ProductID: m.ProductID,
			Available: record.CurrentStock,
			Requested: -delta,
		}
	}

	record.CurrentStock += delta
	record.Version++

	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeStockRepo) ListMovements(ctx context.Context, ownerID int64, req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error) {
	var result []*domain.StockMovement
	for _, m := range f.movements {
		if m.ProductID == req.ProductID && f.owners[m.ProductID] == ownerID {
			result = append(result, m)
		}
	}
	return result, int64(len(result)), nil
}

func (f *fakeStockRepo) ListLowStock(ctx context.Context, ownerID int64) ([]*domain.LowStockAlert, error) {
	return f.lowStock, nil
}

func (f *fakeStockRepo) movementsOfType(t domain.MovementType) []*domain.StockMovement {
	var result []*domain.StockMovement
	for _, m := range f.movements {
		if m.MovementType == t {
			result = append(result, m)
		}
	}
	return result
}

// fakeProductRepo 是内存版商品仓储。
type fakeProductRepo struct {
	products map[int64]*domain.Product
	nextID   int64
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*domain.Product)}
}

func (f *fakeProductRepo) seed(p *domain.Product) *domain.Product {
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = p
	return p
}

func (f *fakeProductRepo) Create(ctx context.Context, q repo.Querier, product *domain.Product) error {
	for _, p := range f.products {
		if p.OwnerID == product.OwnerID && p.SKU == product.SKU {
			return fmt.Errorf("%w: sku %s", domain.ErrDuplicateKey, product.SKU)
		}
	}
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Product, error) {
	p := f.products[id]
	if p == nil || p.OwnerID != ownerID {
		return nil, nil
	}
	return p, nil
}

func (f *fakeProductRepo) GetBySKU(ctx context.Context, ownerID int64, sku string) (*domain.Product, error) {
	for _, p := range f.products {
		if p.OwnerID == ownerID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) Update(ctx context.Context, product *domain.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) List(ctx context.Context, ownerID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	var result []*domain.Product
	for _, p := range f.products {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	return result, int64(len(result)), nil
}

// fakeSaleRepo 是内存版销售单仓储，UpdateStatus 保留条件更新语义。
type fakeSaleRepo struct {
	mu     sync.Mutex
	sales  map[int64]*domain.Sale
	nextID int64
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[int64]*domain.Sale)}
}

func (f *fakeSaleRepo) Create(ctx context.Context, q repo.Querier, sale *domain.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sale.ID = f.nextID
	for _, item := range sale.Items {
		item.SaleID = sale.ID
	}
	f.sales[sale.ID] = sale
	return nil
}

func (f *fakeSaleRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Sale, error) {
	s := f.sales[id]
	if s == nil || s.OwnerID != ownerID {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSaleRepo) UpdateStatus(ctx context.Context, q repo.Querier, ownerID, id int64, from, to domain.SaleStatus) error {
	s := f.sales[id]
	if s == nil || s.OwnerID != ownerID || s.Status != from {
		return domain.ErrInvalidStateTransition
	}
	s.Status = to
	return nil
}

func (f *fakeSaleRepo) List(ctx context.Context, ownerID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	var result []*domain.Sale
	for _, s := range f.sales {
		if s.OwnerID != ownerID {
			continue
		}
		if req.Status != nil && s.Status != *req.Status {
			continue
		}
		result = append(result, s)
	}
	return result, int64(len(result)), nil
}

// fakePurchaseRepo 是内存版采购单仓储。
type fakePurchaseRepo struct {
	purchases map[int64]*domain.Purchase
	nextID    int64
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{purchases: make(map[int64]*domain.Purchase)}
}

func (f *fakePurchaseRepo) Create(ctx context.Context, q repo.Querier, purchase *domain.Purchase) error {
	f.nextID++
	purchase.ID = f.nextID
	for _, item := range purchase.Items {
		item.PurchaseID = purchase.ID
	}
	f.purchases[purchase.ID] = purchase
	return nil
}

func (f *fakePurchaseRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Purchase, error) {
	p := f.purchases[id]
	if p == nil || p.OwnerID != ownerID {
		return nil, nil
	}
	return p, nil
}

func (f *fakePurchaseRepo) UpdateStatus(ctx context.Context, q repo.Querier, ownerID, id int64, from, to domain.PurchaseStatus, receivedAt *time.Time) error {
	p := f.purchases[id]
	if p == nil || p.OwnerID != ownerID || p.Status != from {
		return domain.ErrInvalidStateTransition
	}
	p.Status = to
	if receivedAt != nil {
		p.ReceivedAt = receivedAt
	}
	return nil
}

func (f *fakePurchaseRepo) List(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error) {
	var result []*domain.Purchase
	for _, p := range f.purchases {
		if p.OwnerID != ownerID {
			continue
		}
		if req.Status != nil && p.Status != *req.Status {
			continue
		}
		if req.SupplierID != nil && p.SupplierID != *req.SupplierID {
			continue
		}
		result = append(result, p)
	}
	return result, int64(len(result)), nil
}

// fakeSupplierRepo 是内存版供应商仓储，邮箱/电话在租户内唯一。
type fakeSupplierRepo struct {
	suppliers map[int64]*domain.Supplier
	nextID    int64
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{suppliers: make(map[int64]*domain.Supplier)}
}

func (f *fakeSupplierRepo) seed(s *domain.Supplier) *domain.Supplier {
	f.nextID++
	s.ID = f.nextID
	f.suppliers[s.ID] = s
	return s
}

func (f *fakeSupplierRepo) Create(ctx context.Context, supplier *domain.Supplier) error {
	for _, s := range f.suppliers {
		if s.OwnerID == supplier.OwnerID && (s.Email == supplier.Email || s.Phone == supplier.Phone) {
			return fmt.Errorf("%w: supplier contact", domain.ErrDuplicateKey)
		}
	}
	f.nextID++
	supplier.ID = f.nextID
	f.suppliers[supplier.ID] = supplier
	return nil
}

func (f *fakeSupplierRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Supplier, error) {
	s := f.suppliers[id]
	if s == nil || s.OwnerID != ownerID {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSupplierRepo) Update(ctx context.Context, supplier *domain.Supplier) error {
	for _, s := range f.suppliers {
		if s.ID != supplier.ID && s.OwnerID == supplier.OwnerID &&
			(s.Email == supplier.Email || s.Phone == supplier.Phone) {
			return fmt.Errorf("%w: supplier contact", domain.ErrDuplicateKey)
		}
	}
	f.suppliers[supplier.ID] = supplier
	return nil
}

func (f *fakeSupplierRepo) List(ctx context.Context, ownerID int64, req *domain.SupplierListRequest) ([]*domain.Supplier, int64, error) {
	var result []*domain.Supplier
	for _, s := range f.suppliers {
		if s.OwnerID == ownerID {
			result = append(result, s)
		}
	}
	return result, int64(len(result)), nil
}

// fakeUserRepo 是内存版用户仓储。
type fakeUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (f *fakeUserRepo) seed(u *domain.User) *domain.User {
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%w: user", domain.ErrDuplicateKey)
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, int64, error) {
	var users []*domain.User
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			users = append(users, u)
		}
	}
	total := int64(len(users))
	if offset >= len(users) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], total, nil
}

func (f *fakeUserRepo) UpdateUserRole(ctx context.Context, userID int64, role domain.UserRole) error {
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUserRepo) UpdateUserStatus(ctx context.Context, userID int64, isActive bool) error {
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = isActive
	return nil
}

// fakeSequenceRepo 按租户+单据类型自增序号。
type fakeSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	nextErr  error
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: make(map[string]int64)}
}

func (f *fakeSequenceRepo) Next(ctx context.Context, q repo.Querier, ownerID int64, docType string) (int64, error) {
	if f.nextErr != nil {
		return 0, f.nextErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fmt.Sprintf("%d/%s", ownerID, docType)
	f.counters[key]++
	return f.counters[key], nil
}

// recordingPublisher 记录发布的事件，验证"提交后发布"的行为。
type recordingPublisher struct {
	mu        sync.Mutex
	movements []*domain.StockMovement
	alerts    []*domain.LowStockAlert
	err       error
}

func (p *recordingPublisher) PublishMovement(ctx context.Context, ownerID int64, movement *domain.StockMovement) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, movement)
	return nil
}

func (p *recordingPublisher) PublishLowStockAlert(ctx context.Context, ownerID int64, alert *domain.LowStockAlert) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}
