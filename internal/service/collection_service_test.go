package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/repotest"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func newCollectionService(store *repotest.Store, d events.Dispatcher) *CollectionService {
	return NewCollectionService(CollectionDependencies{
		TicketRepo:     store.Tickets(),
		UserRepo:       store.Users(),
		NoteRepo:       store.Notes(),
		TaskRepo:       store.Tasks(),
		AttachmentRepo: store.Attachments(),
		SparePartRepo:  store.SpareParts(),
		ProductRepo:    store.Products(),
		Dispatcher:     d,
	})
}

func TestNotesAppendAndRemove(t *testing.T) {
	d := &recordingDispatcher{}
	svc := newCollectionService(seededStore(), d)
	ctx := context.Background()

	_, err := svc.AddNote(ctx, nil, 42, " ")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	first, err := svc.AddNote(ctx, ptr(int64(7)), 42, "called customer")
	require.NoError(t, err)
	second, err := svc.AddNote(ctx, ptr(int64(7)), 42, "ordered toner")
	require.NoError(t, err)
	assert.Equal(t, "Agent Seven", second.AuthorName)

	notes, err := svc.ListNotes(ctx, 42)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)

	require.NoError(t, svc.DeleteNote(ctx, 42, first.ID))
	err = svc.DeleteNote(ctx, 42, first.ID)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
	assert.Equal(t, []events.EventType{events.EventTicketNoteAdded, events.EventTicketNoteAdded}, d.types())
}

func TestTasksValidateAssignee(t *testing.T) {
	svc := newCollectionService(seededStore(), nil)
	ctx := context.Background()

	_, err := svc.AddTask(ctx, 42, TaskInput{Title: "swap roller", AssigneeID: ptr(int64(9))})
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	_, err = svc.AddTask(ctx, 42, TaskInput{Title: "swap roller", AssigneeID: ptr(int64(404))})
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	task, err := svc.AddTask(ctx, 42, TaskInput{Title: "swap roller", AssigneeID: ptr(int64(7))})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTask(ctx, 42, task.ID))
}

func TestAttachmentGetsStorageKey(t *testing.T) {
	svc := newCollectionService(seededStore(), nil)

	attachment, err := svc.AddAttachment(context.Background(), 42, AttachmentInput{FileName: "photo.jpg", MimeType: "image/jpeg", SizeBytes: 10})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(attachment.StorageKey, "tickets/"))
	assert.True(t, strings.HasSuffix(attachment.StorageKey, ".jpg"))

	_, err = svc.AddAttachment(context.Background(), 42, AttachmentInput{})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestSparePartTotals(t *testing.T) {
	svc := newCollectionService(seededStore(), nil)
	ctx := context.Background()

	fromCatalog, err := svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 100, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), fromCatalog.UnitPrice)
	assert.Equal(t, int64(5000), fromCatalog.TotalPrice)
	assert.Equal(t, "Toner", fromCatalog.ProductName)

	overridden, err := svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 101, Quantity: 3, UnitPrice: ptr(int64(1000))})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), overridden.TotalPrice)

	_, err = svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 100, Quantity: 0})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	_, err = svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 555, Quantity: 1})
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	_, err = svc.ListSpareParts(ctx, 404)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestSparePartTotalOverflowIsRejected(t *testing.T) {
	store := seededStore()
	svc := newCollectionService(store, nil)
	ctx := context.Background()

	_, err := svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 100, Quantity: 2, UnitPrice: ptr(int64(math.MaxInt64/2 + 1))})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	parts, err := svc.ListSpareParts(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, parts)

	largest, err := svc.AddSparePart(ctx, 42, SparePartInput{ProductID: 100, Quantity: 1, UnitPrice: ptr(int64(math.MaxInt64))})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), largest.TotalPrice)
}
