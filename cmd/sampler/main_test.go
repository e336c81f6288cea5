package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rxtech-lab/trade-sampler/e2e/mockserver"
	"github.com/rxtech-lab/trade-sampler/internal/config"
	"github.com/rxtech-lab/trade-sampler/internal/version"
	"github.com/rxtech-lab/trade-sampler/mocks"
	"github.com/rxtech-lab/trade-sampler/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
)

type SamplerCLITestSuite struct {
	suite.Suite
	dataPath string
	out      *bytes.Buffer
}

func TestSamplerCLISuite(t *testing.T) {
	suite.Run(t, new(SamplerCLITestSuite))
}

func (suite *SamplerCLITestSuite) SetupTest() {
	suite.dataPath = suite.T().TempDir()
	suite.out = &bytes.Buffer{}
}

func (suite *SamplerCLITestSuite) run(args ...string) error {
	app := newApp()
	app.Writer = suite.out
	app.ErrWriter = io.Discard

	return app.Run(context.Background(), append([]string{"sampler"}, args...))
}

// writeConfig writes a config file with short offsets so tests run quickly.
func (suite *SamplerCLITestSuite) writeConfig(endpoint string) string {
	path := filepath.Join(suite.T().TempDir(), "sampler.yaml")
	content := strings.Join([]string{
		"version: " + version.GetVersion(),
		"log_level: error",
		"endpoint: " + endpoint,
		"base_delay: 0s",
		"stagger_step: 100ms",
		"idle_timeout: 50ms",
		"",
	}, "\n")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *SamplerCLITestSuite) TestLoadConfigFlagsOverrideFile() {
	path := suite.writeConfig("ws://127.0.0.1:1/realtime")

	var loaded config.Config

	cmd := newApp().Commands[0]
	cmd.Action = func(_ context.Context, cmd *cli.Command) error {
		var err error
		loaded, err = loadConfig(cmd)

		return err
	}

	err := cmd.Run(context.Background(), []string{
		"cache", "--config", path, "-t", "7", "-c", "3", "--writer", "duckdb", "--symbol", "ETHUSD", "--fail-fast",
	})
	suite.Require().NoError(err)

	suite.Equal(7, loaded.WindowSeconds)
	suite.Equal(3, loaded.Clients)
	suite.Equal("duckdb", loaded.Writer)
	suite.Equal("ETHUSD", loaded.Symbol)
	suite.True(loaded.FailFast)
	suite.Equal("ws://127.0.0.1:1/realtime", loaded.Endpoint)
	suite.Equal("error", loaded.LogLevel)
	suite.Equal(".", loaded.DataPath)
}

func (suite *SamplerCLITestSuite) TestCacheRequiresWindow() {
	err := suite.run("cache")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *SamplerCLITestSuite) TestSchema() {
	suite.Require().NoError(suite.run("schema"))

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal(suite.out.Bytes(), &schema))
	suite.Contains(schema, "properties")
}

func (suite *SamplerCLITestSuite) TestCacheAndRead() {
	server := mockserver.NewMockBybitServer(mockserver.ServerConfig{
		Script: []string{string(mustJSON(mocks.BatchWithPrices("BTCUSD", 100, 200))), string(mustJSON(mocks.BatchWithPrices("BTCUSD", 300)))},
	})
	suite.Require().NoError(server.Start(":0"))

	defer server.Stop()

	err := suite.run("cache", "--config", suite.writeConfig(server.URL()), "-t", "1", "-c", "2", "-d", suite.dataPath)
	suite.Require().NoError(err)
	suite.Contains(suite.out.String(), "The average USD price of BTCUSD is: 200.0000")

	suite.out.Reset()
	suite.Require().NoError(suite.run("read", "-d", suite.dataPath))
	suite.Contains(suite.out.String(), "client 0")
	suite.Contains(suite.out.String(), "client 1")
	suite.Contains(suite.out.String(), `"average_price": 200`)
}

func (suite *SamplerCLITestSuite) TestCacheWithoutTrades() {
	server := mockserver.NewMockBybitServer(mockserver.ServerConfig{})
	suite.Require().NoError(server.Start(":0"))

	defer server.Stop()

	err := suite.run("cache", "--config", suite.writeConfig(server.URL()), "-t", "1", "-d", suite.dataPath)
	suite.True(errors.HasCode(err, errors.ErrCodeNoContributions))
	suite.NotContains(suite.out.String(), "average USD price")
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
