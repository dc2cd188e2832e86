package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/suite"

	"github.com/i2-open/i2goScimBulk/internal/bulk"
	"github.com/i2-open/i2goScimBulk/internal/scimtest"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/client"
)

type toolSuite struct {
	suite.Suite
	dir     *scimtest.Directory
	testDir string
	out     *bytes.Buffer
}

func TestToolSuite(t *testing.T) {
	suite.Run(t, new(toolSuite))
}

func (s *toolSuite) SetupTest() {
	s.dir = scimtest.NewDirectory()
	s.testDir = s.T().TempDir()
	s.out = &bytes.Buffer{}
	s.T().Setenv("WEBEX_ORG_ID", scimtest.TestOrgId)
	s.T().Setenv("WEBEX_SCIM_TOKEN", scimtest.TestToken)
	s.T().Setenv("SCIM_BASE_URL", s.dir.BaseUrl())
	confirm = func(string) bool { return false }
	interactive = func() bool { return true }
}

func (s *toolSuite) TearDownTest() {
	s.dir.Close()
	confirm = ConfirmProceed
	interactive = stdinIsTerminal
}

func (s *toolSuite) execute(args ...string) error {
	cli := &CLI{}
	cli.Out = s.out
	parser, err := initParser(cli, kong.Writers(s.out, s.out), kong.Exit(func(int) {}))
	s.Require().NoError(err)
	ctx, err := parser.Parse(args)
	s.Require().NoError(err)
	return ctx.Run(&cli.Globals)
}

func (s *toolSuite) writeInput(name string, lines ...string) string {
	path := filepath.Join(s.testDir, name)
	s.Require().NoError(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

func (s *toolSuite) TestRemoveWritesReportAndMetrics() {
	alice := s.dir.AddUser("alice@example.com", "alice.alt@example.com")
	input := s.writeInput("users.csv",
		"primary_email,alternate_email",
		"alice@example.com,alice.alt@example.com",
		",x@example.com",
		"bob@example.com,bob.alt@example.com")
	reportPath := filepath.Join(s.testDir, "report.csv")
	metricsPath := filepath.Join(s.testDir, "metrics.prom")

	err := s.execute("remove", "--csv-file", input, "--yes", "--report", reportPath, "--metrics-file", metricsPath)
	s.Require().NoError(err)

	user, _ := s.dir.User(alice)
	s.False(user.HasEmail("alice.alt@example.com"))

	report, err := os.ReadFile(reportPath)
	s.Require().NoError(err)
	lines := strings.Split(strings.TrimSpace(string(report)), "\n")
	s.Require().Len(lines, 4)
	s.Equal("1,alice@example.com,alice.alt@example.com,"+alice+",SUCCESS,", lines[1])
	s.Equal("2,,x@example.com,,SKIPPED,missing primary", lines[2])
	s.Equal("3,bob@example.com,bob.alt@example.com,,NOT_FOUND,", lines[3])

	metrics, err := os.ReadFile(metricsPath)
	s.Require().NoError(err)
	s.Contains(string(metrics), `goScim_bulk_rows_total{outcome="SUCCESS"} 1`)
	s.Contains(string(metrics), `goScim_client_requests_total{method="PATCH",status="204"} 1`)
}

func (s *toolSuite) TestRemoveCustomColumns() {
	erin := s.dir.AddUser("erin@example.com", "erin.old@example.com")
	input := s.writeInput("users.csv", "login,old", "erin@example.com,erin.old@example.com")

	err := s.execute("remove", "--csv-file", input, "--primary-column", "login", "--alternate-column", "old", "-y")
	s.Require().NoError(err)

	user, _ := s.dir.User(erin)
	s.False(user.HasEmail("erin.old@example.com"))
}

func (s *toolSuite) TestRemoveDeclinedMakesNoRequests() {
	s.dir.AddUser("alice@example.com", "alice.alt@example.com")
	input := s.writeInput("users.csv", "primary_email,alternate_email", "alice@example.com,alice.alt@example.com")

	err := s.execute("remove", "--csv-file", input)
	s.Require().ErrorIs(err, ErrCancelled)

	lookups, patches := s.dir.Counts()
	s.Zero(lookups)
	s.Zero(patches)
}

func (s *toolSuite) TestRemoveWithoutTerminalSkipsPrompt() {
	interactive = func() bool { return false }
	alice := s.dir.AddUser("alice@example.com", "alice.alt@example.com")
	input := s.writeInput("users.csv", "primary_email,alternate_email", "alice@example.com,alice.alt@example.com")

	s.Require().NoError(s.execute("remove", "--csv-file", input))

	user, _ := s.dir.User(alice)
	s.False(user.HasEmail("alice.alt@example.com"))
	lookups, patches := s.dir.Counts()
	s.Equal(1, lookups)
	s.Equal(1, patches)
}

func (s *toolSuite) TestRemoveMissingCredentials() {
	s.T().Setenv("WEBEX_SCIM_TOKEN", "")
	input := s.writeInput("users.csv", "primary_email,alternate_email", "alice@example.com,alice.alt@example.com")

	err := s.execute("remove", "--csv-file", input, "--yes")
	var cerr *client.ConfigurationError
	s.Require().ErrorAs(err, &cerr)
	s.Empty(s.dir.Statuses())
}

func (s *toolSuite) TestRemoveMissingInput() {
	err := s.execute("remove", "--csv-file", filepath.Join(s.testDir, "nope.csv"), "--yes")
	var inputErr *bulk.InputError
	s.Require().ErrorAs(err, &inputErr)
	s.Empty(s.dir.Statuses())
}

func (s *toolSuite) TestLookup() {
	id := s.dir.AddUser("alice@example.com", "alice.alt@example.com")

	s.Require().NoError(s.execute("lookup", "alice@example.com"))
	s.Contains(s.out.String(), id)
	s.Contains(s.out.String(), "alice.alt@example.com")

	s.out.Reset()
	s.Require().NoError(s.execute("lookup", "nobody@example.com"))
	s.Contains(s.out.String(), "User 'nobody@example.com' not found.")
}

func (s *toolSuite) TestEnvFile() {
	s.T().Setenv("WEBEX_SCIM_TOKEN", "")
	s.Require().NoError(os.Unsetenv("WEBEX_SCIM_TOKEN"))
	envFile := filepath.Join(s.testDir, "scim.env")
	s.Require().NoError(os.WriteFile(envFile, []byte("WEBEX_SCIM_TOKEN="+scimtest.TestToken+"\n"), 0600))
	s.dir.AddUser("alice@example.com")

	s.Require().NoError(s.execute("--env-file", envFile, "lookup", "alice@example.com"))
	s.Contains(s.out.String(), "alice@example.com")
}

func (s *toolSuite) TestVersion() {
	s.Require().NoError(s.execute("version"))
	s.Contains(s.out.String(), "goScimBulk version "+Version)
}
