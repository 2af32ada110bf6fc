package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"studyhub/internal/domain"
)

// MockSessionRepository mocks the SessionRepository interface. Mutate
// applies fn to the configured return value, so tests exercise the real
// transition logic against a seeded session.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) (bool, error) {
	args := m.Called(ctx, session)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx context.Context, code string) (*domain.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Mutate(ctx context.Context, code string, fn func(*domain.Session) error) (*domain.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	session := args.Get(0).(*domain.Session)
	if err := fn(session); err != nil {
		return nil, err
	}
	return session, args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockSessionRepository) ActiveCodes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSessionRepository) Watch(ctx context.Context, code string) (<-chan domain.Session, func(), error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, func() {}, args.Error(1)
	}
	return args.Get(0).(chan domain.Session), func() {}, args.Error(1)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) List(ctx context.Context, code string) ([]domain.Message, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Clear(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockMessageRepository) Subscribe(ctx context.Context, code string) (<-chan domain.Message, func(), error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, func() {}, args.Error(1)
	}
	return args.Get(0).(chan domain.Message), func() {}, args.Error(1)
}

// MockQueueRepository mocks the QueueRepository interface
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQueueRepository) Dequeue(ctx context.Context, wait time.Duration) (*domain.QueueEntry, error) {
	args := m.Called(ctx, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueEntry), args.Error(1)
}

func (m *MockQueueRepository) SetStatus(ctx context.Context, entry *domain.QueueEntry, status domain.QueueStatus) error {
	args := m.Called(ctx, entry, status)
	return args.Error(0)
}

func (m *MockQueueRepository) Stale(ctx context.Context, cutoff time.Time) ([]domain.QueueEntry, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueEntry), args.Error(1)
}

func (m *MockQueueRepository) Subscribe(ctx context.Context, code string) (<-chan domain.QueueEntry, func(), error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, func() {}, args.Error(1)
	}
	return args.Get(0).(chan domain.QueueEntry), func() {}, args.Error(1)
}

// MockTypingRepository mocks the TypingRepository interface
type MockTypingRepository struct {
	mock.Mock
}

func (m *MockTypingRepository) Set(ctx context.Context, ev *domain.TypingEvent, ttl time.Duration) error {
	args := m.Called(ctx, ev, ttl)
	return args.Error(0)
}

func (m *MockTypingRepository) Subscribe(ctx context.Context, code string) (<-chan domain.TypingEvent, func(), error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, func() {}, args.Error(1)
	}
	return args.Get(0).(chan domain.TypingEvent), func() {}, args.Error(1)
}

// MockNoteRepository mocks the NoteRepository interface
type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Put(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) Get(ctx context.Context, code string, id uuid.UUID) (*domain.Note, error) {
	args := m.Called(ctx, code, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *MockNoteRepository) Delete(ctx context.Context, code string, id uuid.UUID) error {
	args := m.Called(ctx, code, id)
	return args.Error(0)
}

func (m *MockNoteRepository) List(ctx context.Context, code string) ([]domain.Note, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Note), args.Error(1)
}

func (m *MockNoteRepository) Subscribe(ctx context.Context, code string) (<-chan domain.NoteEvent, func(), error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, func() {}, args.Error(1)
	}
	return args.Get(0).(chan domain.NoteEvent), func() {}, args.Error(1)
}

// MockPresenceRepository mocks the PresenceRepository interface
type MockPresenceRepository struct {
	mock.Mock
}

func (m *MockPresenceRepository) Heartbeat(ctx context.Context, code, userID string, ttl time.Duration) error {
	args := m.Called(ctx, code, userID, ttl)
	return args.Error(0)
}

func (m *MockPresenceRepository) Alive(ctx context.Context, code, userID string) (bool, error) {
	args := m.Called(ctx, code, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPresenceRepository) Clear(ctx context.Context, code, userID string) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

// MockArchiveRepository mocks the ArchiveRepository interface
type MockArchiveRepository struct {
	mock.Mock
}

func (m *MockArchiveRepository) Save(ctx context.Context, archive *domain.SessionArchive) error {
	args := m.Called(ctx, archive)
	return args.Error(0)
}

func (m *MockArchiveRepository) Get(ctx context.Context, code string) (*domain.SessionArchive, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionArchive), args.Error(1)
}
