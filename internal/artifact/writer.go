// Package artifact persists the per-client results of a sampling run and reads them back.
package artifact

import (
	"fmt"

	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
)

// Format selects how artifacts are persisted.
type Format string

const (
	// FormatJSON writes one pretty-printed client_<id>_data.json per client.
	FormatJSON Format = "json"
	// FormatDuckDB writes one client_<id>_data.parquet per client and an averages.parquet summary.
	FormatDuckDB Format = "duckdb"
)

// Writer persists the artifact of each client. Implementations are safe for concurrent use
// by different clients.
type Writer interface {
	// Initialize prepares the destination. It must be called before Write.
	Initialize() error
	// Write persists the artifact of one client and returns the path written.
	Write(clientID int, aggregate types.FinalAggregate) (string, error)
	// Close releases any resources held by the writer.
	Close() error
}

// NewWriter creates the writer for the given format rooted at dataPath.
func NewWriter(format Format, dataPath string, log *logger.Logger) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(dataPath, log), nil
	case FormatDuckDB:
		return NewDuckDBWriter(dataPath, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedWriter, "unsupported writer %q", format)
	}
}

// FileName returns the artifact file name of a client for the given extension, e.g. client_3_data.json.
func FileName(clientID int, ext string) string {
	return fmt.Sprintf("client_%d_data.%s", clientID, ext)
}
