package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/trade-sampler/internal/logger"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/mocks"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type JSONWriterTestSuite struct {
	suite.Suite
	dataPath string
	writer   *JSONWriter
}

func TestJSONWriterSuite(t *testing.T) {
	suite.Run(t, new(JSONWriterTestSuite))
}

func (suite *JSONWriterTestSuite) SetupTest() {
	suite.dataPath = filepath.Join(suite.T().TempDir(), "data")
	suite.writer = NewJSONWriter(suite.dataPath, logger.NewNopLogger())
	suite.Require().NoError(suite.writer.Initialize())
}

func (suite *JSONWriterTestSuite) TearDownTest() {
	suite.NoError(suite.writer.Close())
}

func (suite *JSONWriterTestSuite) TestWrite() {
	aggregate := types.NewFinalAggregate(
		[]types.TradeBatch{mocks.BatchWithPrices("BTCUSD", 100, 200), mocks.BatchWithPrices("BTCUSD", 300)},
		types.ClientAverage{AveragePrice: 200, EventCount: 3},
	)

	path, err := suite.writer.Write(4, aggregate)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.dataPath, "client_4_data.json"), path)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var raw map[string]json.RawMessage
	suite.Require().NoError(json.Unmarshal(content, &raw))
	suite.Contains(raw, "Data")
	suite.Contains(raw, "Average")
	suite.JSONEq(`[{"average_price":200}]`, string(raw["Average"]))

	var decoded types.FinalAggregate
	suite.Require().NoError(json.Unmarshal(content, &decoded))
	suite.Len(decoded.Data, 2)
	suite.Len(decoded.Data[0].Data, 2)
	suite.Equal(300.0, decoded.Data[1].Data[0].Price)
}

func (suite *JSONWriterTestSuite) TestWriteWithoutBatches() {
	path, err := suite.writer.Write(0, types.NewFinalAggregate(nil, types.ClientAverage{AveragePrice: 1, EventCount: 1}))
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.JSONEq(`{"Data":[],"Average":[{"average_price":1}]}`, string(content))
}

func (suite *JSONWriterTestSuite) TestOverwrite() {
	_, err := suite.writer.Write(1, types.NewFinalAggregate(nil, types.ClientAverage{AveragePrice: 1, EventCount: 1}))
	suite.Require().NoError(err)

	path, err := suite.writer.Write(1, types.NewFinalAggregate(nil, types.ClientAverage{AveragePrice: 2, EventCount: 1}))
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(content), `"average_price": 2`)
}

func (suite *JSONWriterTestSuite) TestWriteToMissingDirectory() {
	writer := NewJSONWriter(filepath.Join(suite.T().TempDir(), "missing"), logger.NewNopLogger())

	_, err := writer.Write(0, types.NewFinalAggregate(nil, types.ClientAverage{AveragePrice: 1, EventCount: 1}))
	suite.True(errors.HasCode(err, errors.ErrCodePersistenceFailed))
}

func (suite *JSONWriterTestSuite) TestNewWriter() {
	writer, err := NewWriter(FormatJSON, suite.dataPath, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&JSONWriter{}, writer)

	writer, err = NewWriter(FormatDuckDB, suite.dataPath, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&DuckDBWriter{}, writer)

	_, err = NewWriter(Format("csv"), suite.dataPath, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedWriter))
}
