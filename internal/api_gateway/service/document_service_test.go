package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentServiceImpl_GetDocumentByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	tests := []struct {
		name      string
		repoDoc   *edocument.EDocument
		repoErr   error
		wantFound bool
		wantErr   bool
	}{
		{"found", &edocument.EDocument{ID: 40, State: edocument.StateInvoiceSent}, nil, true, false},
		{"not found", nil, edocument.ErrDocumentNotFound{ID: 40}, false, false},
		{"database error", nil, errors.New("timeout"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			documents := new(mocks.DocumentRepository)
			service := NewDocumentService(logger, documents, new(mocks.AttachmentRepository))
			documents.On("GetByID", ctx, int64(40)).Return(tt.repoDoc, tt.repoErr).Once()

			doc, err := service.GetDocumentByID(ctx, 40)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantFound, doc != nil)
		})
	}
}

func TestDocumentServiceImpl_Lists(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()
	documents := new(mocks.DocumentRepository)
	attachments := new(mocks.AttachmentRepository)
	service := NewDocumentService(logger, documents, attachments)

	byRecord := []*edocument.EDocument{{ID: 40}, {ID: 41}}
	byFlow := []*edocument.EDocument{{ID: 50}}
	files := []*attachment.Attachment{{ID: "a1", DocumentID: 40, Kind: attachment.KindSent}}
	documents.On("ListByRecord", ctx, int64(7)).Return(byRecord, nil).Once()
	documents.On("ListByFlow", ctx, int64(5)).Return(byFlow, nil).Once()
	attachments.On("ListByDocument", ctx, int64(40)).Return(files, nil).Once()

	got, err := service.GetDocumentsByRecord(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, byRecord, got)

	got, err = service.GetDocumentsByFlow(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, byFlow, got)

	gotFiles, err := service.GetAttachments(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, files, gotFiles)
}

func TestDocumentServiceImpl_GetAttachment(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		attachments := new(mocks.AttachmentRepository)
		service := NewDocumentService(logger, new(mocks.DocumentRepository), attachments)
		expected := &attachment.Attachment{ID: "a1", Name: "FA2024_0001_RO.xml", Content: []byte("<Invoice/>")}
		attachments.On("Get", ctx, "a1").Return(expected, nil).Once()

		a, err := service.GetAttachment(ctx, "a1")

		require.NoError(t, err)
		assert.Equal(t, expected, a)
	})

	t.Run("not found", func(t *testing.T) {
		attachments := new(mocks.AttachmentRepository)
		service := NewDocumentService(logger, new(mocks.DocumentRepository), attachments)
		attachments.On("Get", ctx, "missing").Return(nil, attachment.ErrAttachmentNotFound{ID: "missing"}).Once()

		a, err := service.GetAttachment(ctx, "missing")

		assert.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("store error", func(t *testing.T) {
		attachments := new(mocks.AttachmentRepository)
		service := NewDocumentService(logger, new(mocks.DocumentRepository), attachments)
		attachments.On("Get", ctx, "a1").Return(nil, errors.New("mongo down")).Once()

		_, err := service.GetAttachment(ctx, "a1")

		assert.EqualError(t, err, "mongo down")
	})
}
