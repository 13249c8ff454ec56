package handler

import (
	"mime"
	"net/http"

	"github.com/edocument-exchange/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// Error codes of the envelope. Clients branch on the code; messages are for people.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_SERVER_ERROR"
)

// Response is the envelope of every JSON answer. Exactly one of Data and Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, statusCode int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func respondError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, Response{Data: data})
}

// RespondAccepted acknowledges work handed to the processor.
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, Response{Data: data})
}

func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, CodeBadRequest, message)
}

func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, CodeNotFound, message)
}

func RespondConflict(c *gin.Context, message string) {
	respondError(c, http.StatusConflict, CodeConflict, message)
}

// RespondInternalError hides the cause; handlers log it with the correlation id.
func RespondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, CodeInternal, "An internal server error occurred")
}

// RespondFile sends stored bytes unchanged, outside the envelope. Signed
// receipts must reach the client byte for byte.
func RespondFile(c *gin.Context, name, mimeType string, content []byte) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, mimeType, content)
}
