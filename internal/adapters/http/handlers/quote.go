package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

const (
	// ExportFilename is the attachment name of GET /quotes/export.
	ExportFilename = "quotes.json"

	// ImportFormField is the multipart field read by POST /quotes/import.
	ImportFormField = "file"
)

// QuoteService is the application surface the quote handler renders.
// *app.QuoteBook implements it.
type QuoteService interface {
	List() []domain.Quote
	Categories() []string
	SelectedCategory(ctx context.Context) (string, error)
	Random(ctx context.Context, sessionID string) (domain.Quote, error)
	LastViewed(ctx context.Context, sessionID string) (domain.Quote, error)
	Add(ctx context.Context, text, category string) (domain.Quote, error)
	Filter(ctx context.Context, category string) (app.FilterResult, error)
	Import(ctx context.Context, data []byte) (app.ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
	Sync(ctx context.Context) (app.SyncResult, error)
}

// QuoteHandler handles the quote endpoints.
type QuoteHandler struct {
	service QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// ListQuotes handles GET /api/v1/quotes.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewQuoteListResponse(h.service.List()))
}

// AddQuote handles POST /api/v1/quotes.
// Returns 201 with the stored quote, 400 for blank fields and 409 for a
// text that is already in the collection.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		if dto.IsValidationError(err) {
			dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
			return
		}

		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "request body must be a JSON object with text and category")

		return
	}

	quote, err := h.service.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// RandomQuote handles GET /api/v1/quotes/random and records the pick as the
// session's last viewed quote.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	quote, err := h.service.Random(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// LastViewedQuote handles GET /api/v1/quotes/last-viewed.
func (h *QuoteHandler) LastViewedQuote(c *gin.Context) {
	quote, err := h.service.LastViewed(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// FilterQuotes handles GET /api/v1/quotes/filter?category=.
// Without a category the persisted selection is used.
func (h *QuoteHandler) FilterQuotes(c *gin.Context) {
	var q dto.FilterQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "invalid query")
		return
	}

	result, err := h.service.Filter(c.Request.Context(), q.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewFilterResponse(result))
}

// ListCategories handles GET /api/v1/categories.
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	selected, err := h.service.SelectedCategory(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.Categories(),
		Selected:   selected,
	})
}

// ExportQuotes handles GET /api/v1/quotes/export as a JSON file download.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ExportFilename}))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// ImportQuotes handles POST /api/v1/quotes/import. The JSON array is read
// from the multipart field "file" when the request is a form upload and
// from the raw body otherwise.
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrorCodeBadRequest, "import file too large").WithTraceID(dto.GetTraceID(c)))
			return
		}

		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())

		return
	}

	result, err := h.service.Import(c.Request.Context(), data)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewImportResponse(result))
}

func readImport(c *gin.Context) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(c.ContentType())
	if mediaType != gin.MIMEMultipartPOSTForm {
		return io.ReadAll(c.Request.Body)
	}

	header, err := c.FormFile(ImportFormField)
	if err != nil {
		return nil, errors.New("multipart field \"" + ImportFormField + "\" is required")
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return io.ReadAll(file)
}

// SyncQuotes handles POST /api/v1/sync.
func (h *QuoteHandler) SyncQuotes(c *gin.Context) {
	result, err := h.service.Sync(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(result))
}

// RegisterQuoteRoutes registers the quote routes on rg.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/last-viewed", h.LastViewedQuote)
	quotes.GET("/filter", h.FilterQuotes)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", h.ImportQuotes)

	rg.GET("/categories", h.ListCategories)
	rg.POST("/sync", h.SyncQuotes)
}
