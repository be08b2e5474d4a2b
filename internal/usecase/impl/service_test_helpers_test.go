package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"orderdesk/config"
	"orderdesk/internal/domain/entity"
	"orderdesk/internal/domain/repository"
	"orderdesk/internal/domain/service"
	"orderdesk/internal/infra/auth"
	"orderdesk/internal/infra/persistence/model"
	"orderdesk/internal/infra/persistence/postgres"
	"orderdesk/internal/usecase"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires real repositories against an in-memory database so the
// services are exercised end to end without mocks.
type testEnv struct {
	db           *gorm.DB
	txManager    repository.TransactionManager
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
	refreshRepo  repository.RefreshTokenRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	publisher    *recordingPublisher
	users        usecase.UserUsecase
	orders       usecase.OrderUsecase
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event *service.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.EventType)
	}

	return types
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SecretKey.Access = "test-access-secret"
	cfg.SecretKey.Refresh = "test-refresh-secret"

	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.UserModel{},
		&model.OrderModel{},
		&model.OrderItemModel{},
		&model.RefreshTokenModel{},
	))

	tokenService, err := auth.NewJWTService(newTestConfig())
	require.NoError(t, err)

	env := &testEnv{
		db:           db,
		txManager:    postgres.NewTransactionManager(db),
		userRepo:     postgres.NewUserRepository(db),
		orderRepo:    postgres.NewOrderRepository(db),
		refreshRepo:  postgres.NewRefreshTokenRepository(db),
		hasher:       auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		tokenService: tokenService,
		publisher:    &recordingPublisher{},
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env.users = NewUserService(UserServiceParams{
		TxManager:        env.txManager,
		UserRepo:         env.userRepo,
		RefreshTokenRepo: env.refreshRepo,
		Hasher:           env.hasher,
		TokenService:     env.tokenService,
		Logger:           testLogger,
	})
	env.orders = NewOrderService(OrderServiceParams{
		TxManager: env.txManager,
		OrderRepo: env.orderRepo,
		Publisher: env.publisher,
		Logger:    testLogger,
	})

	return env
}

// registerUser creates an account through the usecase and returns the entity.
func (env *testEnv) registerUser(t *testing.T, email string, admin bool) *entity.User {
	t.Helper()

	out, err := env.users.RegisterUser(context.Background(), &usecase.RegisterUserInput{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
		Active:   true,
		Admin:    admin,
	})
	require.NoError(t, err)

	return out.User
}

// createOrder opens a pending order owned by the given user.
func (env *testEnv) createOrder(t *testing.T, owner *entity.User) *entity.Order {
	t.Helper()

	order, err := env.orders.CreateOrder(context.Background(), owner, &usecase.CreateOrderInput{UserID: owner.ID})
	require.NoError(t, err)

	return order
}
