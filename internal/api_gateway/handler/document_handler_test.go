package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edocument-exchange/internal/domain/attachment"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDocumentRouter(documents *MockDocumentService) *gin.Engine {
	h := NewDocumentHandler(testLogger, documents)
	router := gin.New()
	router.GET("/documents/:id", h.GetByID)
	router.GET("/documents/:id/attachments", h.Attachments)
	router.GET("/records/:id/documents", h.GetByRecordID)
	router.GET("/flows/:id/documents", h.GetByFlowID)
	router.GET("/attachments/:id", h.Download)
	return router
}

func serve(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestDocumentHandler_GetByID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		doc        *edocument.EDocument
		err        error
		wantStatus int
	}{
		{"found", &edocument.EDocument{ID: 40, State: edocument.StateInvoiceSent, LoadID: "5005"}, nil, http.StatusOK},
		{"not found", nil, nil, http.StatusNotFound},
		{"store failure", nil, errors.New("timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			documents := new(MockDocumentService)
			if tt.doc != nil {
				documents.On("GetDocumentByID", mock.Anything, int64(40)).Return(tt.doc, nil).Once()
			} else {
				documents.On("GetDocumentByID", mock.Anything, int64(40)).Return(nil, tt.err).Once()
			}

			rr := serve(newDocumentRouter(documents), "/documents/40")

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				env, err := decode[edocument.EDocument](rr)
				require.NoError(t, err)
				assert.Equal(t, "5005", env.Data.LoadID)
			}
		})
	}
}

func TestDocumentHandler_Lists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	documents := new(MockDocumentService)
	router := newDocumentRouter(documents)

	documents.On("GetDocumentsByRecord", mock.Anything, int64(7)).Return([]*edocument.EDocument{{ID: 40}, {ID: 41}}, nil).Once()
	documents.On("GetDocumentsByFlow", mock.Anything, int64(5)).Return([]*edocument.EDocument{{ID: 50}}, nil).Once()
	documents.On("GetAttachments", mock.Anything, int64(40)).
		Return([]*attachment.Attachment{{ID: "a1", Kind: attachment.KindSent, Content: []byte("<Invoice/>")}}, nil).Once()

	rr := serve(router, "/records/7/documents")
	assert.Equal(t, http.StatusOK, rr.Code)
	byRecord, err := decode[[]edocument.EDocument](rr)
	require.NoError(t, err)
	assert.Len(t, byRecord.Data, 2)

	rr = serve(router, "/flows/5/documents")
	assert.Equal(t, http.StatusOK, rr.Code)
	byFlow, err := decode[[]edocument.EDocument](rr)
	require.NoError(t, err)
	assert.Equal(t, int64(50), byFlow.Data[0].ID)

	rr = serve(router, "/documents/40/attachments")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Invoice", "listing must not carry file content")

	documents.AssertExpectations(t)
}

func TestDocumentHandler_Download(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("streams exact bytes", func(t *testing.T) {
		documents := new(MockDocumentService)
		content := []byte("<?xml version=\"1.0\"?>\n<Invoice/>")
		documents.On("GetAttachment", mock.Anything, "a1").Return(&attachment.Attachment{
			ID:       "a1",
			Name:     "FA2024_0001_RO.xml",
			MimeType: "application/xml",
			Content:  content,
		}, nil).Once()

		rr := serve(newDocumentRouter(documents), "/attachments/a1")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, content, rr.Body.Bytes())
		assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename=FA2024_0001_RO.xml", rr.Header().Get("Content-Disposition"))
	})

	t.Run("name needing quotes", func(t *testing.T) {
		documents := new(MockDocumentService)
		documents.On("GetAttachment", mock.Anything, "a2").Return(&attachment.Attachment{
			ID:      "a2",
			Name:    "receipt 5005.zip",
			Content: []byte("PK"),
		}, nil).Once()

		rr := serve(newDocumentRouter(documents), "/attachments/a2")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="receipt 5005.zip"`, rr.Header().Get("Content-Disposition"))
	})

	t.Run("missing", func(t *testing.T) {
		documents := new(MockDocumentService)
		documents.On("GetAttachment", mock.Anything, "a1").Return(nil, nil).Once()

		rr := serve(newDocumentRouter(documents), "/attachments/a1")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
