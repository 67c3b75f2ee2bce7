package service

import (
	"context"
	"sync"

	"lottopay/events"

	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork is a mock implementation of UnitOfWork backed by the
// repository mocks set through SetRepositories.
type MockUnitOfWork struct {
	mock.Mock

	userRepo        UserRepository
	transactionRepo TransactionRepository
	payoutRepo      PayoutRepository
	fundRepo        FundRepository
	depositMemoRepo DepositMemoRepository
	cursorRepo      CursorRepository
	drawRepo        DrawRepository
	eventBus        EventPublisher
}

// SetRepositories wires repository mocks into the unit of work. Nil entries
// are fine for repositories the test never touches.
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	transactionRepo TransactionRepository,
	payoutRepo PayoutRepository,
	fundRepo FundRepository,
	depositMemoRepo DepositMemoRepository,
	cursorRepo CursorRepository,
	drawRepo DrawRepository,
) {
	m.userRepo = userRepo
	m.transactionRepo = transactionRepo
	m.payoutRepo = payoutRepo
	m.fundRepo = fundRepo
	m.depositMemoRepo = depositMemoRepo
	m.cursorRepo = cursorRepo
	m.drawRepo = drawRepo
	m.eventBus = &RecordingEventBus{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository               { return m.userRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.transactionRepo }
func (m *MockUnitOfWork) PayoutRepository() PayoutRepository           { return m.payoutRepo }
func (m *MockUnitOfWork) FundRepository() FundRepository               { return m.fundRepo }
func (m *MockUnitOfWork) DepositMemoRepository() DepositMemoRepository { return m.depositMemoRepo }
func (m *MockUnitOfWork) CursorRepository() CursorRepository           { return m.cursorRepo }
func (m *MockUnitOfWork) DrawRepository() DrawRepository               { return m.drawRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.eventBus }

// Events returns the events published through this unit of work
func (m *MockUnitOfWork) Events() []events.Event {
	if bus, ok := m.eventBus.(*RecordingEventBus); ok {
		return bus.Events()
	}
	return nil
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// RecordingEventBus captures published events for assertions
type RecordingEventBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *RecordingEventBus) Publish(event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *RecordingEventBus) Events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, len(b.events))
	copy(out, b.events)
	return out
}
