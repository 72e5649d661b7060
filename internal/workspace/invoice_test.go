package workspace_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

func TestInvoiceEstimateProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 500; i++ {
		var (
			parts []dto.SparePartResponse
			sum   int64
		)
		n := rng.IntN(6)
		for j := 0; j < n; j++ {
			q := rng.Int64N(20) + 1
			p := rng.Int64N(100_000)
			parts = append(parts, dto.SparePartResponse{ID: int64(j + 1), Quantity: q, UnitPrice: p, TotalPrice: q * p})
			sum += q * p
		}
		service := rng.Int64N(50_000)
		discount := rng.Int64N(200_000)

		want := sum + service - discount
		if want < 0 {
			want = 0
		}
		snap := workspace.Snapshot{SpareParts: parts}
		got := snap.InvoiceEstimate(service, discount)

		require.Equal(t, want, got, "iteration %d", i)
		require.GreaterOrEqual(t, got, int64(0))
		total, err := domain.InvoiceTotal(sum, service, discount)
		require.NoError(t, err)
		require.Equal(t, total, got)
	}
}

func TestInvoiceAmountsOutOfRange(t *testing.T) {
	api := newFakeAPI()
	api.spareParts = []dto.SparePartResponse{
		{ID: 1, ProductID: 100, Quantity: 1, UnitPrice: math.MaxInt64, TotalPrice: math.MaxInt64},
	}
	ws := open(t, api)
	ctx := context.Background()
	require.NoError(t, ws.Verify(ctx, "works again"))

	assert.Equal(t, int64(math.MaxInt64), ws.Snapshot().InvoiceEstimate(1, 0), "estimate saturates")

	var verr *workspace.ValidationError
	_, err := ws.CreateInvoice(ctx, workspace.InvoiceInput{PaymentMode: "CASH", ServiceCharge: 1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "service_charge", verr.Field)
	assert.Zero(t, api.count("create_invoice"))

	_, err = ws.AddSparePart(ctx, dto.CreateSparePartRequest{ProductID: 100, Quantity: 2, UnitPrice: ptr(int64(math.MaxInt64/2 + 1))})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unit_price", verr.Field)
	assert.Len(t, ws.Snapshot().SpareParts, 1)
}

func TestCreateInvoiceValidatesBeforeSending(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	var verr *workspace.ValidationError
	_, err := ws.CreateInvoice(ctx, workspace.InvoiceInput{PaymentMode: "CASH"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "verified_at", verr.Field)

	require.NoError(t, ws.Verify(ctx, "works again"))
	assert.NotNil(t, ws.Snapshot().Ticket.VerifiedAt)

	for _, in := range []workspace.InvoiceInput{
		{},
		{PaymentMode: "barter"},
		{PaymentMode: "CASH", ServiceCharge: -1},
		{PaymentMode: "CASH", Discount: -1},
	} {
		_, err := ws.CreateInvoice(ctx, in)
		assert.ErrorAs(t, err, &verr, "%+v", in)
	}
	assert.Equal(t, 0, api.count("create_invoice"))

	assert.ErrorAs(t, ws.Verify(ctx, "  "), &verr)
}

func TestCreateInvoiceSendsTheDisplayedEstimate(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()

	_, err := ws.AddSparePart(ctx, dto.CreateSparePartRequest{ProductID: 100, Quantity: 2})
	require.NoError(t, err)
	_, err = ws.AddSparePart(ctx, dto.CreateSparePartRequest{ProductID: 101, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, ws.Verify(ctx, "replaced toner and roller"))

	draft, err := ws.PrepareInvoice(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft.Existing)
	assert.True(t, draft.Verified)
	assert.Equal(t, int64(6200), draft.ItemCost)
	estimate := draft.Total(1000, 500)
	assert.Equal(t, int64(6700), estimate)
	assert.Equal(t, estimate, ws.Snapshot().InvoiceEstimate(1000, 500))

	gets := api.count("get")
	res, err := ws.CreateInvoice(ctx, workspace.InvoiceInput{ServiceCharge: 1000, Discount: 500, PaymentMode: "cash"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyExisted)
	assert.Equal(t, estimate, res.Invoice.TotalAmount)

	require.Len(t, api.invoiceReqs, 1)
	req := api.invoiceReqs[0]
	assert.Equal(t, "CASH", req.PaymentMode)
	assert.Equal(t, estimate, req.TotalAmount)
	assert.Len(t, req.Products, 2)
	assert.Equal(t, gets+1, api.count("get"))
}

func TestExistingInvoiceIsInformational(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	ctx := context.Background()
	require.NoError(t, ws.Verify(ctx, "done"))

	api.invoice = &dto.InvoiceResponse{ID: 9, TicketID: 42, TotalAmount: 1500}

	draft, err := ws.PrepareInvoice(ctx)
	require.NoError(t, err)
	require.NotNil(t, draft.Existing)
	assert.Equal(t, int64(9), draft.Existing.ID)

	res, err := ws.CreateInvoice(ctx, workspace.InvoiceInput{PaymentMode: "CARD"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyExisted)
	assert.Equal(t, int64(9), res.Invoice.ID)
}

func TestPrepareInvoiceForMissingTicketFails(t *testing.T) {
	api := newFakeAPI()
	ws := open(t, api)
	api.mu.Lock()
	api.deleted = true
	api.mu.Unlock()

	draft, err := ws.PrepareInvoice(context.Background())
	assert.ErrorIs(t, err, workspace.ErrNotFound)
	assert.Nil(t, draft)
}
