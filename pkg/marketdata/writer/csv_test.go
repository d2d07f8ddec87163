package writer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

type CSVWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestCSVWriterSuite(t *testing.T) {
	suite.Run(t, new(CSVWriterTestSuite))
}

func (suite *CSVWriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func sampleRecords() []types.PriceRecord {
	return []types.PriceRecord{
		{Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(5000)},
		{Date: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(5100)},
	}
}

func (suite *CSVWriterTestSuite) writeAll(path string, records []types.PriceRecord) string {
	w := NewCSVWriter(path)
	suite.Require().NoError(w.Initialize())
	defer w.Close()

	for _, record := range records {
		suite.Require().NoError(w.Write(record))
	}

	outputPath, err := w.Finalize()
	suite.Require().NoError(err)

	return outputPath
}

func (suite *CSVWriterTestSuite) TestNewCSVWriter() {
	path := filepath.Join(suite.tempDir, "114190.csv")
	w := NewCSVWriter(path)

	csvWriter, ok := w.(*CSVWriter)
	suite.True(ok)
	suite.Equal(path, csvWriter.outputPath)
	suite.Equal(path, w.GetOutputPath())
	suite.Nil(csvWriter.rows)
}

func (suite *CSVWriterTestSuite) TestWriteExactContent() {
	path := filepath.Join(suite.tempDir, "114190.csv")
	outputPath := suite.writeAll(path, sampleRecords())
	suite.Equal(path, outputPath)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2020-01-02,5000\n2020-01-03,5100\n", string(content))
}

func (suite *CSVWriterTestSuite) TestDecimalCloseIsWrittenVerbatim() {
	path := filepath.Join(suite.tempDir, "AAPL.csv")
	suite.writeAll(path, []types.PriceRecord{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: decimal.RequireFromString("185.64")},
	})

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2024-01-02,185.64\n", string(content))
}

func (suite *CSVWriterTestSuite) TestWritingTwiceIsByteIdentical() {
	path := filepath.Join(suite.tempDir, "114190.csv")

	suite.writeAll(path, sampleRecords())
	first, err := os.ReadFile(path)
	suite.Require().NoError(err)

	suite.writeAll(path, sampleRecords())
	second, err := os.ReadFile(path)
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func (suite *CSVWriterTestSuite) TestOverwritesExistingFile() {
	path := filepath.Join(suite.tempDir, "114190.csv")
	suite.Require().NoError(os.WriteFile(path, []byte("stale,data\n1,2\n3,4\n5,6\n"), 0o644))

	suite.writeAll(path, sampleRecords()[:1])

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2020-01-02,5000\n", string(content))
}

func (suite *CSVWriterTestSuite) TestNoStagingFileLeftBehind() {
	path := filepath.Join(suite.tempDir, "114190.csv")
	suite.writeAll(path, sampleRecords())

	entries, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
	suite.Equal("114190.csv", entries[0].Name())
}

func (suite *CSVWriterTestSuite) TestCloseWithoutFinalizeLeavesTargetUntouched() {
	path := filepath.Join(suite.tempDir, "114190.csv")
	suite.Require().NoError(os.WriteFile(path, []byte("previous"), 0o644))

	w := NewCSVWriter(path)
	suite.Require().NoError(w.Initialize())
	suite.Require().NoError(w.Write(sampleRecords()[0]))
	suite.NoError(w.Close())

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("previous", string(content))
}

func (suite *CSVWriterTestSuite) TestWriteWithoutInitialize() {
	w := NewCSVWriter(filepath.Join(suite.tempDir, "x.csv"))

	err := w.Write(sampleRecords()[0])
	suite.Error(err)
	suite.Contains(err.Error(), "writer not initialized")

	_, err = w.Finalize()
	suite.Error(err)
}

func (suite *CSVWriterTestSuite) TestInitializeMissingDirectory() {
	w := NewCSVWriter(filepath.Join(suite.tempDir, "missing", "x.csv"))

	err := w.Initialize()
	suite.Error(err)
	suite.Contains(err.Error(), "not accessible")
}
