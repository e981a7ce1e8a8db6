package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"evo-store/internal/auth"
	"evo-store/internal/config"
	"evo-store/internal/database"
	"evo-store/internal/events"
	"evo-store/internal/gateway"
	"evo-store/internal/handler"
	"evo-store/internal/invoice"
	"evo-store/internal/lock"
	"evo-store/internal/middleware"
	"evo-store/internal/model"
	"evo-store/internal/notify"
	"evo-store/internal/repository"
	"evo-store/internal/router"
	"evo-store/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testJWTSecret = "integration-secret-0123456789abcdef"
	testBotKey    = "integration-bot-key"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a connection pool and the
// schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPoolFromConnString(ctx, connStr, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProducts inserts the test catalogue.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	repo := repository.NewProductRepository(pool, zerolog.Nop())

	products := []struct {
		id        string
		price     string
		category  string
		stock     int
		published bool
	}{
		{"P001", "10.00", "peptides", 10, true},
		{"P002", "20.00", "peptides", 5, true},
		{"P003", "30.00", "supplies", 0, true},
		{"P004", "40.00", "supplies", 10, true},
		{"P005", "50.00", "peptides", 10, false},
	}

	for _, p := range products {
		err := repo.Upsert(ctx, &model.Product{
			ID:                p.id,
			Name:              "Test Product " + p.id,
			Slug:              strings.ToLower(p.id),
			Price:             decimal.RequireFromString(p.price),
			Category:          p.category,
			StockQuantity:     p.stock,
			LowStockThreshold: 3,
			IsPublished:       p.published,
		})
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"payments", "order_items", "orders", "products", "users"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// fakeGateway issues bills without network access. The first bill of an
// order is BILL-<order number>; retries get a -2, -3 suffix. Bill status
// answers come from the statuses map and default to pending.
type fakeGateway struct {
	mu       sync.Mutex
	issued   map[string]int
	statuses map[string]model.GatewayStatus
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		issued:   make(map[string]int),
		statuses: make(map[string]model.GatewayStatus),
	}
}

func billCodeFor(orderNumber string) string {
	return "BILL-" + orderNumber
}

func (g *fakeGateway) CreateBill(_ context.Context, req gateway.BillRequest) (*gateway.Bill, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.issued[req.OrderNumber]++
	code := billCodeFor(req.OrderNumber)
	if n := g.issued[req.OrderNumber]; n > 1 {
		code = fmt.Sprintf("%s-%d", code, n)
	}
	return &gateway.Bill{Code: code, PaymentURL: "https://pay.example/" + code}, nil
}

func (g *fakeGateway) BillStatus(_ context.Context, billCode string) (model.GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st, ok := g.statuses[billCode]; ok {
		return st, nil
	}
	return model.GatewayStatusPending, nil
}

// SetBillStatus sets what the gateway reports for billCode.
func (g *fakeGateway) SetBillStatus(billCode string, status model.GatewayStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[billCode] = status
}

// recordingMailer keeps every message it is asked to send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// subjects returns the subjects of messages sent to addr.
func (m *recordingMailer) subjects(addr string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		if msg.To == addr {
			out = append(out, msg.Subject)
		}
	}
	return out
}

// TestServer is the full HTTP stack wired against a test database.
type TestServer struct {
	Handler  http.Handler
	DB       *TestDB
	Gateway  *fakeGateway
	Mailer   *recordingMailer
	Notifier *notify.Notifier
	Users    repository.UserRepository
}

// FlushMail waits for queued emails.
func (s *TestServer) FlushMail(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Notifier.Close(ctx); err != nil {
		t.Fatalf("notifier did not drain: %v", err)
	}
}

// SetupTestServer wires repositories, services, handlers and the router the
// way the API binary does, replacing the gateway and SMTP relay with fakes.
func SetupTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	store := config.StoreConfig{
		Name:              "Evo Test Store",
		OrderNumberPrefix: "EVO",
		TrackingURL:       "https://shop.example/track",
		Currency:          "MYR",
	}

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	paymentRepo := repository.NewPaymentRepository(testDB.Pool, logger)
	userRepo := repository.NewUserRepository(testDB.Pool, logger)
	analyticsRepo := repository.NewAnalyticsRepository(testDB.Pool, logger)

	tokens, err := auth.NewTokenManager(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}

	mailer := &recordingMailer{}
	notifier := notify.NewNotifier(mailer, store, time.Second, logger)
	publisher := events.NewPublisher(config.KafkaConfig{}, logger)
	gw := newFakeGateway()

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, paymentRepo, gw, notifier, publisher, store.OrderNumberPrefix, logger)
	paymentService := service.NewPaymentService(orderRepo, productRepo, paymentRepo, gw, lock.NopLocker{}, notifier, publisher, false, logger)
	authService := service.NewAuthService(userRepo, tokens, logger)
	adminService := service.NewAdminService(orderRepo, paymentRepo, userRepo, analyticsRepo, notifier, publisher, invoice.NewRenderer(store), logger)

	handlers := router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Payments: handler.NewPaymentHandler(paymentService, store.TrackingURL, logger),
		Auth:     handler.NewAuthHandler(authService, logger),
		Admin:    handler.NewAdminHandler(adminService, logger),
	}

	mux := router.New(handlers, router.Options{
		Guard:   middleware.NewAuth(tokens, logger),
		Limiter: middleware.NewRateLimiter(1000, 1000, false, logger),
		BotKey:  testBotKey,
	}, logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = notifier.Close(ctx)
	})

	return &TestServer{
		Handler:  mux,
		DB:       testDB,
		Gateway:  gw,
		Mailer:   mailer,
		Notifier: notifier,
		Users:    userRepo,
	}
}
