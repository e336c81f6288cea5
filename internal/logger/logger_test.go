package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevel() {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := NewLoggerWithLevel(level)
		suite.NoError(err, "level %q", level)
		suite.NotNil(logger)
	}
}

func (suite *LoggerTestSuite) TestNewLoggerWithInvalidLevel() {
	logger, err := NewLoggerWithLevel("loud")
	suite.Error(err)
	suite.Nil(logger)
	suite.Contains(err.Error(), "invalid log level")
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevelFiltersDebug() {
	logger, err := NewLoggerWithLevel("warn")
	suite.Require().NoError(err)
	suite.False(logger.Core().Enabled(zap.InfoLevel))
	suite.True(logger.Core().Enabled(zap.WarnLevel))
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	// Sync should not panic and should return nil for a nil inner logger
	err := logger.Sync()
	suite.NoError(err)
}

func (suite *LoggerTestSuite) TestNopLoggerAndNamed() {
	logger := NewNopLogger()
	suite.NotNil(logger)

	child := logger.Named("stream").With(zap.Int("client_id", 7))
	suite.NotNil(child)

	// These should not panic
	child.Info("test info message", zap.Int("client_id", 1))
	child.Error("test error message")
	suite.NoError(child.Sync())
}
