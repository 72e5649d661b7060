package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/api/http/servertest"
	"github.com/spec-kit/helpdesk/internal/cli"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func asAgent(t *testing.T, srv *servertest.Server, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--api-url", srv.URL, "--token", srv.Token(t, 7)}, args...)...)
}

func TestShowPrintsTicket(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "show", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, "Printer jam")
	assert.Contains(t, out, "Open")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "Downtown")
}

func TestShowJSON(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "--json", "show", "42")
	require.NoError(t, err)

	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, int64(42), snap.Ticket.ID)
	assert.Len(t, snap.Catalog.Statuses, 4)
	assert.Empty(t, snap.Pending)
}

func TestEnvironmentConfig(t *testing.T) {
	srv := servertest.Start(t)
	t.Setenv("DESK_API_URL", srv.URL)
	t.Setenv("DESK_TOKEN", srv.Token(t, 7))

	out, err := execute(t, "show", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Printer jam")
}

func TestStatusClosesTicket(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "status", "42", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed (closed ")

	ticket, ok := srv.Store.Ticket(42)
	require.True(t, ok)
	assert.Equal(t, int64(3), ticket.StatusID)
	assert.NotNil(t, ticket.ClosedTime)
}

func TestStatusRejectsUnknownID(t *testing.T) {
	srv := servertest.Start(t)

	_, err := asAgent(t, srv, "status", "42", "99")
	require.Error(t, err)

	var verr *workspace.ValidationError
	assert.ErrorAs(t, err, &verr)
	ticket, _ := srv.Store.Ticket(42)
	assert.Equal(t, int64(1), ticket.StatusID)
}

func TestFullModeUpdatesPriority(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "--mode", "full", "priority", "42", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "High")

	ticket, _ := srv.Store.Ticket(42)
	assert.Equal(t, int64(3), ticket.PriorityID)
}

func TestAssignAndUnassign(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "assign", "42", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Eight (8)")
	assert.Equal(t, []int64{8}, srv.Store.Members(repository.RelationAgents, 42))

	_, err = asAgent(t, srv, "unassign", "42", "8")
	require.NoError(t, err)
	assert.Empty(t, srv.Store.Members(repository.RelationAgents, 42))
}

func TestLabelRemoveFlag(t *testing.T) {
	srv := servertest.Start(t)

	_, err := asAgent(t, srv, "label", "42", "11")
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, srv.Store.Members(repository.RelationLabels, 42))

	_, err = asAgent(t, srv, "label", "--remove", "42", "11")
	require.NoError(t, err)
	assert.Empty(t, srv.Store.Members(repository.RelationLabels, 42))
}

func TestNoteJoinsArgs(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "--json", "note", "42", "called", "the", "customer")
	require.NoError(t, err)

	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, "called the customer", snap.Notes[0].Body)
}

func TestInvoiceFlow(t *testing.T) {
	srv := servertest.Start(t)

	out, err := asAgent(t, srv, "invoice", "42", "--service-charge", "1000", "--discount", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "7.50")

	_, err = asAgent(t, srv, "invoice", "42", "--create", "--payment-mode", "cash", "--service-charge", "1000")
	var verr *workspace.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "verified_at", verr.Field)

	_, err = asAgent(t, srv, "verify", "42", "works", "again")
	require.NoError(t, err)

	out, err = asAgent(t, srv, "invoice", "42", "--create", "--payment-mode", "cash", "--service-charge", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "10.00")
	assert.Contains(t, out, "CASH")

	out, err = asAgent(t, srv, "invoice", "42", "--create", "--payment-mode", "card")
	require.NoError(t, err)
	assert.Contains(t, out, "already has invoice")
}

func TestLoginPrintsExport(t *testing.T) {
	srv := servertest.Start(t)

	out, err := execute(t, "--api-url", srv.URL, "login", "--email", "seven@example.com", "--password", servertest.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Seven")
	assert.Contains(t, out, "export DESK_TOKEN=")
}

func TestRejectsBadInput(t *testing.T) {
	srv := servertest.Start(t)

	_, err := asAgent(t, srv, "--mode", "bulk", "show", "42")
	assert.ErrorContains(t, err, "unknown mode")

	_, err = asAgent(t, srv, "show", "abc")
	assert.ErrorContains(t, err, "invalid ticket id")

	_, err = asAgent(t, srv, "show", "999")
	assert.ErrorIs(t, err, workspace.ErrNotFound)
}
