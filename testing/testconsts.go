package testing

import "time"

// TestLoggerLevelDisabled silences loggers built in tests.
const TestLoggerLevelDisabled = "disabled"

// TestContainerTimeout bounds container startup in integration tests.
const TestContainerTimeout = 90 * time.Second
