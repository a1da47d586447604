package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kursadbilgin/workshop-checkin/internal/auth"
	"github.com/kursadbilgin/workshop-checkin/internal/config"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingConfig() (*config.Config, error) {
	return nil, errors.New("DATABASE_DSN is required")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{LoadConfig: failingConfig})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "workshopctl", cmd.Use)
	assert.Contains(t, cmd.Long, "retry sweep")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"token", "migrate", "sweep", "normalize"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tokenCmd, _, err := cmd.Find([]string{"token"})
	require.NoError(t, err)
	assert.Equal(t, "staff", tokenCmd.Flags().Lookup("role").DefValue)
	assert.Equal(t, "12h0m0s", tokenCmd.Flags().Lookup("ttl").DefValue)
	require.NotNil(t, tokenCmd.Flags().Lookup("subject"))

	sweepCmd, _, err := cmd.Find([]string{"sweep"})
	require.NoError(t, err)
	assert.Equal(t, "0", sweepCmd.Flags().Lookup("limit").DefValue)

	normalizeCmd, _, err := cmd.Find([]string{"normalize"})
	require.NoError(t, err)
	assert.Equal(t, "91", normalizeCmd.Flags().Lookup("country-code").DefValue)
}

func TestFormatValidation(t *testing.T) {
	_, err := execute(t, "--format", "xml", "normalize", "9876543210")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestNormalizeCommand(t *testing.T) {
	out, err := execute(t, "normalize", "+91 98765-43210")
	require.NoError(t, err)
	assert.Equal(t, "919876543210\n", out)

	out, err = execute(t, "normalize", "--country-code", "44", "7911 123456")
	require.NoError(t, err)
	assert.Equal(t, "447911123456\n", out)
}

func TestNormalizeCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "normalize", "9876543210")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   normalizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "919876543210", resp.Data.Recipient)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	out, err := execute(t, "token", "--subject", "staff-7", "--role", "admin", "--secret", "s3cret")
	require.NoError(t, err)

	verifier, err := auth.NewJWT("s3cret")
	require.NoError(t, err)
	identity, err := verifier.Verify(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, domain.StaffIdentity{ID: "staff-7", Role: domain.RoleAdmin}, identity)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	_, err := execute(t, "token", "--subject", "staff-7", "--role", "owner", "--secret", "s3cret")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTokenCommandRequiresSubject(t *testing.T) {
	_, err := execute(t, "token", "--secret", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestCommandsReportConfigErrors(t *testing.T) {
	for _, name := range []string{"migrate", "sweep"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, ExitCode(err))
			assert.Contains(t, err.Error(), "cannot load config")
		})
	}
}

func TestSweepRejectsNegativeLimit(t *testing.T) {
	_, err := execute(t, "sweep", "--limit=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid limit")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, ExitCode(WrapExitError(ExitCommandError, "bad", nil)))
}
