package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"go.uber.org/zap"
)

// JSONWriter writes each client's FinalAggregate as pretty-printed JSON.
// An existing artifact of the same client is overwritten.
type JSONWriter struct {
	dataPath string
	logger   *logger.Logger
}

// NewJSONWriter creates a JSONWriter that writes into dataPath.
func NewJSONWriter(dataPath string, log *logger.Logger) *JSONWriter {
	return &JSONWriter{
		dataPath: dataPath,
		logger:   log.Named("artifact"),
	}
}

// Initialize creates the data directory if it doesn't exist.
func (w *JSONWriter) Initialize() error {
	if err := os.MkdirAll(w.dataPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create data directory", err)
	}

	return nil
}

// Write persists the artifact of one client.
func (w *JSONWriter) Write(clientID int, aggregate types.FinalAggregate) (string, error) {
	content, err := json.MarshalIndent(aggregate, "", "  ")
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to encode artifact of client %d", clientID)
	}

	path := filepath.Join(w.dataPath, FileName(clientID, "json"))

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to write %s", path)
	}

	w.logger.Debug("Artifact written", zap.Int("client_id", clientID), zap.String("path", path))

	return path, nil
}

// Close is a no-op; every Write closes its own file.
func (w *JSONWriter) Close() error {
	return nil
}
