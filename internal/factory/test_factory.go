package factory

import (
	"time"

	"github.com/chessroom/chessroom/internal/dependencies/mocks"
	"github.com/chessroom/chessroom/internal/realtime/hub"
	"github.com/chessroom/chessroom/internal/services/session"
	"github.com/chessroom/chessroom/internal/storage/memory"
	"github.com/chessroom/chessroom/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, session.DefaultConfig(), hub.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
