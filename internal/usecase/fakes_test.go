package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/messaging/payloads"
	"github.com/google/uuid"
)

// memStore — хранилище в памяти для тестов сервисов.
// Уникальность purchases.gift_id проверяется под мьютексом в момент вставки,
// как это делает ограничение в PostgreSQL.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]domain.User
	gifts     map[uuid.UUID]domain.Gift
	purchases map[uuid.UUID]domain.Purchase // по gift_id

	// readGate, если задан, задерживает каждую транзакцию после чтения покупки,
	// пока все участники гонки не дойдут до этой точки.
	readGate  *sync.WaitGroup
	conflicts int
	// beforeInsert вызывается перед вставкой покупки, без блокировки.
	beforeInsert func()
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]domain.User{},
		gifts:     map[uuid.UUID]domain.Gift{},
		purchases: map[uuid.UUID]domain.Purchase{},
	}
}

func (s *memStore) addUser(name, email string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.New(), Name: name, Email: email, PasswordHash: "x"}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addGift(owner domain.User, title string) domain.Gift {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := domain.Gift{ID: uuid.New(), OwnerID: owner.ID, Title: title}
	s.gifts[g.ID] = g
	return g
}

func (s *memStore) purchaseCount(giftID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[giftID]; ok {
		return 1
	}
	return 0
}

// --- ports.UserStorage

func (s *memStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = domain.NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("insert user: %w", domain.ErrEmailTaken)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == domain.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username(), username) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) SearchUsers(_ context.Context, query string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	q := strings.ToLower(query)
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- ports.GiftStorage

func (s *memStore) CreateGift(_ context.Context, gift *domain.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gift.ID == uuid.Nil {
		gift.ID = uuid.New()
	}
	s.gifts[gift.ID] = *gift
	return nil
}

func (s *memStore) GetGiftByID(_ context.Context, id uuid.UUID) (*domain.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.giftLocked(id)
}

func (s *memStore) giftLocked(id uuid.UUID) (*domain.Gift, error) {
	g, ok := s.gifts[id]
	if !ok {
		return nil, fmt.Errorf("gift %s: %w", id, domain.ErrNotFound)
	}
	return &g, nil
}

func (s *memStore) UpdateGift(_ context.Context, gift *domain.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.gifts[gift.ID]
	if !ok {
		return domain.ErrNotFound
	}
	updated := *gift
	updated.OwnerID = existing.OwnerID
	s.gifts[gift.ID] = updated
	return nil
}

func (s *memStore) DeleteGift(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gifts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.gifts, id)
	delete(s.purchases, id)
	return nil
}

func (s *memStore) ListGiftsByOwner(_ context.Context, ownerID uuid.UUID, newestFirst bool) ([]domain.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Gift{}
	for _, g := range s.gifts {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) SetGiftImagePath(_ context.Context, id uuid.UUID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.ImagePath = &path
	s.gifts[id] = g
	return nil
}

func (s *memStore) SetInferredImageURL(_ context.Context, id uuid.UUID, imageURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[id]
	if !ok || (g.ImageURL != nil && *g.ImageURL != "") {
		return false, nil
	}
	g.ImageURL = &imageURL
	s.gifts[id] = g
	return true, nil
}

// --- ports.PurchaseStorage

func (s *memStore) WithinTx(ctx context.Context, fn func(tx ports.PurchaseTx) error) error {
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return ctx.Err()
}

func (s *memStore) PurchasesForGifts(_ context.Context, giftIDs []uuid.UUID) (map[uuid.UUID]domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]domain.Purchase{}
	for _, id := range giftIDs {
		if p, ok := s.purchases[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memStore) ListPurchasesByBuyer(_ context.Context, buyerID uuid.UUID) ([]domain.PurchaseListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PurchaseListing{}
	for _, p := range s.purchases {
		if p.BuyerID != buyerID {
			continue
		}
		g := s.gifts[p.GiftID]
		owner := s.users[g.OwnerID]
		out = append(out, domain.PurchaseListing{Purchase: p, GiftTitle: g.Title, OwnerName: owner.Name, OwnerEmail: owner.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

// memTx применяет записи сразу и откатывает их, если fn вернула ошибку.
type memTx struct {
	store *memStore
	undo  []func()
}

func (t *memTx) GetGift(_ context.Context, id uuid.UUID) (*domain.Gift, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.giftLocked(id)
}

func (t *memTx) GetPurchaseByGift(_ context.Context, giftID uuid.UUID) (*domain.Purchase, error) {
	t.store.mu.Lock()
	p, ok := t.store.purchases[giftID]
	t.store.mu.Unlock()

	if gate := t.store.readGate; gate != nil {
		gate.Done()
		gate.Wait()
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) InsertPurchase(_ context.Context, p *domain.Purchase) error {
	if hook := t.store.beforeInsert; hook != nil {
		hook()
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	// как внешний ключ purchases.gift_id
	if _, ok := t.store.gifts[p.GiftID]; !ok {
		return fmt.Errorf("insert purchase: %w", domain.ErrNotFound)
	}
	if _, exists := t.store.purchases[p.GiftID]; exists {
		t.store.conflicts++
		return fmt.Errorf("insert purchase: %w", domain.ErrConflictRace)
	}
	t.store.purchases[p.GiftID] = *p
	t.undo = append(t.undo, func() { delete(t.store.purchases, p.GiftID) })
	return nil
}

func (t *memTx) DeletePurchase(_ context.Context, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for giftID, p := range t.store.purchases {
		if p.ID == id {
			delete(t.store.purchases, giftID)
			t.undo = append(t.undo, func() { t.store.purchases[giftID] = p })
			return nil
		}
	}
	return domain.ErrNotFound
}

func (t *memTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

// failingPurchasesStore имитирует обрыв соединения при любой транзакции.
type failingPurchasesStore struct {
	*memStore
}

func (f *failingPurchasesStore) WithinTx(context.Context, func(ports.PurchaseTx) error) error {
	return errStorageDown
}

// outcomeCounter считает исходы вместо Prometheus.
type outcomeCounter struct {
	mu       sync.Mutex
	claims   map[string]int
	unclaims map[string]int
}

func newOutcomeCounter() *outcomeCounter {
	return &outcomeCounter{claims: map[string]int{}, unclaims: map[string]int{}}
}

func (c *outcomeCounter) RecordClaim(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claims[outcome]++
}

func (c *outcomeCounter) RecordUnclaim(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unclaims[outcome]++
}

// memFiles — ports.FileStorage в памяти.
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *memFiles) UploadFile(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return key, nil
}

func (f *memFiles) GetFile(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[key], nil
}

func (f *memFiles) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// recordingPublisher запоминает задачи; при заданном err публикация падает.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads []payloads.ImageInferencePayload
	err      error
}

func (p *recordingPublisher) PublishImageInference(_ context.Context, payload payloads.ImageInferencePayload) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

// staticResolver отдает заранее заданный URL картинки для любой страницы.
type staticResolver struct {
	imageURL string
	calls    int
}

func (r *staticResolver) ResolveImageURL(context.Context, string) (string, error) {
	r.calls++
	return r.imageURL, nil
}

type staticDownloader struct {
	body        string
	contentType string
	err         error
}

func (d staticDownloader) Download(context.Context, string) (io.ReadCloser, string, error) {
	if d.err != nil {
		return nil, "", d.err
	}
	return io.NopCloser(strings.NewReader(d.body)), d.contentType, nil
}

// plainHasher хранит пароль с префиксом, чтобы тесты не ждали bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

var errStorageDown = errors.New("connection refused")
