package artifact

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"go.uber.org/zap"
)

var artifactPattern = regexp.MustCompile(`^client_(\d+)_data\.json$`)

// Artifact is one persisted JSON artifact found in a data directory.
type Artifact struct {
	ClientID int
	Path     string
	// Content is the trimmed file content. It is empty until the artifact is read.
	Content string
}

// ClientSummary is one row of averages.parquet.
type ClientSummary struct {
	ClientID     int
	AveragePrice float64
	EventCount   int
}

// Reader finds and reads the artifacts of a data directory.
type Reader struct {
	dataPath string
	logger   *logger.Logger
}

// NewReader creates a Reader for dataPath.
func NewReader(dataPath string, log *logger.Logger) *Reader {
	return &Reader{
		dataPath: dataPath,
		logger:   log.Named("artifact"),
	}
}

// List returns the JSON artifacts of the data directory ordered by client id.
// Files that do not match client_<id>_data.json are ignored.
func (r *Reader) List() ([]Artifact, error) {
	entries, err := os.ReadDir(r.dataPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to list %s", r.dataPath)
	}

	artifacts := make([]Artifact, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		match := artifactPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		clientID, err := strconv.Atoi(match[1])
		if err != nil {
			r.logger.Warn("Skipping artifact with an out of range client id", zap.String("file", entry.Name()))

			continue
		}

		artifacts = append(artifacts, Artifact{
			ClientID: clientID,
			Path:     filepath.Join(r.dataPath, entry.Name()),
			Content:  "",
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ClientID < artifacts[j].ClientID
	})

	return artifacts, nil
}

// ReadAll returns every non-empty JSON artifact with its trimmed content.
// Empty files are logged and skipped.
func (r *Reader) ReadAll() ([]Artifact, error) {
	artifacts, err := r.List()
	if err != nil {
		return nil, err
	}

	result := make([]Artifact, 0, len(artifacts))

	for _, artifact := range artifacts {
		content, err := os.ReadFile(artifact.Path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to read %s", artifact.Path)
		}

		trimmed := strings.TrimSpace(string(content))
		if trimmed == "" {
			r.logger.Warn("Skipping empty artifact", zap.String("file", filepath.Base(artifact.Path)))

			continue
		}

		artifact.Content = trimmed
		result = append(result, artifact)
	}

	return result, nil
}

// Load decodes the artifact of one client.
func (r *Reader) Load(clientID int) (types.FinalAggregate, error) {
	path := filepath.Join(r.dataPath, FileName(clientID, "json"))

	content, err := os.ReadFile(path)
	if err != nil {
		return types.FinalAggregate{}, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to read %s", path)
	}

	var aggregate types.FinalAggregate
	if err := json.Unmarshal(content, &aggregate); err != nil {
		return types.FinalAggregate{}, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to decode %s", path)
	}

	return aggregate, nil
}

// Summaries reads averages.parquet. It returns no rows when the file does not exist.
func (r *Reader) Summaries() ([]ClientSummary, error) {
	path := filepath.Join(r.dataPath, AveragesFile)
	if _, err := os.Stat(path); err != nil {
		return []ClientSummary{}, nil
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`CREATE VIEW averages_view AS SELECT * FROM read_parquet('%s')`, quotePath(path)))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactReadFailed, err, "failed to open %s", path)
	}

	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("client_id", "average_price", "event_count").
		From("averages_view").
		OrderBy("client_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to build SQL query", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to query averages", err)
	}
	defer rows.Close()

	summaries := make([]ClientSummary, 0)

	for rows.Next() {
		var summary ClientSummary
		if err := rows.Scan(&summary.ClientID, &summary.AveragePrice, &summary.EventCount); err != nil {
			return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to scan average row", err)
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactReadFailed, "error iterating average rows", err)
	}

	return summaries, nil
}
