package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/mgiordano/cotejo/internal/repositories/reconciliation"
	"github.com/mgiordano/cotejo/internal/repositories/record"
	"github.com/mgiordano/cotejo/pkg/discrepancy"
	"github.com/mgiordano/cotejo/pkg/export"
	"github.com/mgiordano/cotejo/pkg/ingest"
	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/reconcile"
	"github.com/mgiordano/cotejo/pkg/session"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SessionHandler exposes the reconciliation workflow: uploads, matching,
// manual grouping, aggregation, export and persistence.
type SessionHandler struct {
	sessions           *session.Manager
	engine             *reconcile.Engine
	reconciliationRepo reconciliation.ReconciliationRepository
	recordRepo         record.RecordRepository
	minDifference      decimal.Decimal
	maxUploadBytes     int64
	logger             ectologger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessions *session.Manager,
	engine *reconcile.Engine,
	reconciliationRepo reconciliation.ReconciliationRepository,
	recordRepo record.RecordRepository,
	minDifference decimal.Decimal,
	maxUploadBytes int64,
	logger ectologger.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:           sessions,
		engine:             engine,
		reconciliationRepo: reconciliationRepo,
		recordRepo:         recordRepo,
		minDifference:      minDifference,
		maxUploadBytes:     maxUploadBytes,
		logger:             logger,
	}
}

// RegisterRoutes registers the session and persistence routes
func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions/:id/uploads/:source", h.Upload)
	g.PUT("/sessions/:id/mapping", h.SetMapping)
	g.POST("/sessions/:id/process", h.Process)
	g.GET("/sessions/:id/records/:source", h.ListRecords)
	g.GET("/sessions/:id/providers", h.Providers)
	g.GET("/sessions/:id/providers/:cuit", h.ProviderDetail)
	g.POST("/sessions/:id/selection", h.PreviewSelection)
	g.POST("/sessions/:id/manual-reconcile", h.ManualReconcile)
	g.POST("/sessions/:id/dereconcile", h.Dereconcile)
	g.PUT("/sessions/:id/records/:source/:index/comment", h.SetComment)
	g.GET("/sessions/:id/export", h.Export)
	g.POST("/sessions/:id/save", h.Save)

	g.GET("/reconciliations", h.ListSaved)
	g.POST("/reconciliations/:id/load", h.Load)
	g.PUT("/reconciliations/:id/name", h.RenameSaved)
	g.DELETE("/reconciliations/:id", h.DeleteSaved)
}

type createSessionRequest struct {
	Name string `json:"name" validate:"required"`
}

type sessionResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	ReconciliationID string               `json:"reconciliation_id,omitempty"`
	Mapping          models.ColumnMapping `json:"mapping"`
	TaxRecords       int                  `json:"registros_arca"`
	BooksRecords     int                  `json:"registros_contabilidad"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:               s.ID,
		Name:             s.Name,
		ReconciliationID: s.ReconciliationID,
		Mapping:          s.Mapping,
		TaxRecords:       s.Store.Len(models.SourceTax),
		BooksRecords:     s.Store.Len(models.SourceBooks),
	}
}

// CreateSession opens a new working session
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	s := h.sessions.Create(req.Name)
	h.logger.WithContext(c.Request().Context()).WithField("session_id", s.ID).Info("session created")
	return CreatedResponse(c, toSessionResponse(s))
}

// ListSessions lists the open working sessions
func (h *SessionHandler) ListSessions(c echo.Context) error {
	sessions := h.sessions.List()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		s.Lock()
		out = append(out, toSessionResponse(s))
		s.Unlock()
	}
	return SuccessResponse(c, out)
}

func (h *SessionHandler) getSession(c echo.Context) (*session.Session, error) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		return nil, NotFound("session not found")
	}
	return s, nil
}

type uploadResponse struct {
	FileName string               `json:"file_name"`
	Columns  []string             `json:"columns"`
	Rows     int                  `json:"rows"`
	Mapping  models.ColumnMapping `json:"mapping"`
}

// Upload receives one source's extract file
func (h *SessionHandler) Upload(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}
	source, err := ParseSource(c, "source")
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return BadRequest("missing file upload")
	}
	if fileHeader.Size > h.maxUploadBytes {
		return httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge, "file exceeds %d bytes", h.maxUploadBytes)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return BadRequest("unreadable file upload")
	}
	defer f.Close()

	upload, err := ingest.Read(f, fileHeader.Filename)
	if err != nil {
		h.logger.WithContext(c.Request().Context()).WithError(err).Warn("upload rejected")
		return BadRequest(err.Error())
	}

	s.Lock()
	defer s.Unlock()
	s.SetUpload(source, upload)

	return SuccessResponse(c, uploadResponse{
		FileName: upload.FileName,
		Columns:  upload.Columns,
		Rows:     len(upload.Rows),
		Mapping:  s.Mapping,
	})
}

// SetMapping confirms the column mapping for both sources
func (h *SessionHandler) SetMapping(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	var req models.ColumnMapping
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	s.Mapping = req
	return SuccessResponse(c, toSessionResponse(s))
}

type processResponse struct {
	Summary   reconcile.Summary   `json:"resumen"`
	Providers discrepancy.Summary `json:"discrepancias"`
}

// Process rebuilds the record store from the uploads and runs automatic
// matching. On a loaded session with no fresh uploads the existing records
// are re-matched in place.
func (h *SessionHandler) Process(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.Mapping.TaxIDColumn == "" || s.Mapping.BooksIDColumn == "" {
		return BadRequest("column mapping is not confirmed")
	}
	if s.HasBothUploads() {
		s.ResetStore()
	} else if s.Store.Len(models.SourceTax) == 0 && s.Store.Len(models.SourceBooks) == 0 {
		return BadRequest("both extracts must be uploaded before processing")
	}

	ctx := c.Request().Context()
	h.engine.AutoMatch(ctx, s.Store, s.Mapping)

	return SuccessResponse(c, processResponse{
		Summary:   reconcile.Summarize(s.Store, s.Mapping),
		Providers: discrepancy.Summarize(s.Store, s.Mapping, h.minDifference),
	})
}

// ListRecords returns one source's records with their match state
func (h *SessionHandler) ListRecords(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}
	source, err := ParseSource(c, "source")
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	records := s.Store.Records(source)
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	return SuccessResponse(c, out)
}

// Providers returns the per-counterparty discrepancy aggregation
func (h *SessionHandler) Providers(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	minDifference := h.minDifference
	if raw := c.QueryParam("min_difference"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return BadRequest("invalid min_difference")
		}
		minDifference = parsed
	}

	s.Lock()
	defer s.Unlock()
	return SuccessResponse(c, discrepancy.Summarize(s.Store, s.Mapping, minDifference))
}

type providerDetailResponse struct {
	CUIT           string          `json:"cuit"`
	DisplayName    string          `json:"razon_social"`
	PendingTax     []models.Record `json:"pendientes_arca"`
	Reconciled     []models.Record `json:"conciliadas"`
	UnmatchedBooks []models.Record `json:"sin_match_contabilidad"`
}

// ProviderDetail returns one counterparty's records bucketed by match state
func (h *SessionHandler) ProviderDetail(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	cuit := normalize.DigitsOnly(c.Param("cuit"))
	if cuit == "" {
		return BadRequest("invalid cuit")
	}

	s.Lock()
	defer s.Unlock()

	detail := providerDetailResponse{
		CUIT:           cuit,
		DisplayName:    models.DisplayNameUnavailable,
		PendingTax:     []models.Record{},
		Reconciled:     []models.Record{},
		UnmatchedBooks: []models.Record{},
	}

	seen := false
	for _, source := range []models.Source{models.SourceTax, models.SourceBooks} {
		idColumn := s.Mapping.IDColumn(source)
		for _, rec := range s.Store.Records(source) {
			value, _ := rec.Fields.Get(idColumn)
			if normalize.DigitsOnly(value.String()) != cuit {
				continue
			}
			if !seen {
				detail.DisplayName = normalize.DisplayName(rec.Fields)
				seen = true
			}
			// reconciled books records mirror their tax counterparts
			// and are not listed separately
			switch {
			case source == models.SourceTax && rec.Status.IsReconciled():
				detail.Reconciled = append(detail.Reconciled, *rec)
			case source == models.SourceTax:
				detail.PendingTax = append(detail.PendingTax, *rec)
			case !rec.Status.IsReconciled():
				detail.UnmatchedBooks = append(detail.UnmatchedBooks, *rec)
			}
		}
	}
	if !seen {
		return NotFound("counterparty not found")
	}

	return SuccessResponse(c, detail)
}

type selectionResponse struct {
	Mode          reconcile.Mode  `json:"mode"`
	NetDifference decimal.Decimal `json:"diferencia_neta"`
	CanReconcile  bool            `json:"puede_conciliar"`
	Selected      int             `json:"seleccionados"`
}

func (h *SessionHandler) buildSelection(c echo.Context, s *session.Session) (reconcile.Selection, error) {
	var req models.ManualSelectionRequest
	if err := BindAndValidate(c, &req); err != nil {
		return reconcile.Selection{}, err
	}
	return h.engine.BuildSelection(s.Store, s.Mapping, req), nil
}

// PreviewSelection reports what a selection supports before committing
func (h *SessionHandler) PreviewSelection(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	sel, err := h.buildSelection(c, s)
	if err != nil {
		return err
	}

	return SuccessResponse(c, selectionResponse{
		Mode:          sel.Mode(),
		NetDifference: sel.NetDifference,
		CanReconcile:  h.engine.CanReconcile(sel),
		Selected:      len(sel.PendingTax) + len(sel.ReconciledTax) + len(sel.UnmatchedBooks),
	})
}

type manualReconcileResponse struct {
	MatchID string            `json:"match_id"`
	Summary reconcile.Summary `json:"resumen"`
}

// ManualReconcile commits the selected records as one match group
func (h *SessionHandler) ManualReconcile(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	sel, err := h.buildSelection(c, s)
	if err != nil {
		return err
	}

	matchID, ok := h.engine.Commit(c.Request().Context(), sel)
	if !ok {
		return Conflict("selection cannot be reconciled")
	}

	return SuccessResponse(c, manualReconcileResponse{
		MatchID: matchID,
		Summary: reconcile.Summarize(s.Store, s.Mapping),
	})
}

type dereconcileResponse struct {
	GroupsReversed int               `json:"grupos_revertidos"`
	Summary        reconcile.Summary `json:"resumen"`
}

// Dereconcile reverses the match groups of the selected records
func (h *SessionHandler) Dereconcile(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	sel, err := h.buildSelection(c, s)
	if err != nil {
		return err
	}
	if sel.Mode() != reconcile.ModeDereconcile {
		return Conflict("selection cannot be dereconciled")
	}

	reversed := h.engine.Dereconcile(c.Request().Context(), s.Store, sel)
	return SuccessResponse(c, dereconcileResponse{
		GroupsReversed: reversed,
		Summary:        reconcile.Summarize(s.Store, s.Mapping),
	})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// SetComment annotates one record
func (h *SessionHandler) SetComment(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}
	source, err := ParseSource(c, "source")
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return BadRequest("invalid record index")
	}

	var req commentRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	if !s.Store.SetComment(source, index, req.Comment) {
		return NotFound("record not found")
	}
	return NoContentResponse(c)
}

// Export streams the session as a workbook. An optional cuit query
// parameter narrows the export to one counterparty.
func (h *SessionHandler) Export(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	s.Lock()
	buf, err := export.Workbook(s.Store, s.Mapping, export.Options{CUITFilter: c.QueryParam("cuit")})
	s.Unlock()
	if err != nil {
		h.logger.WithContext(c.Request().Context()).WithError(err).Error("export failed")
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="conciliacion.xlsx"`)
	return c.Blob(http.StatusOK, workbookContentType, buf.Bytes())
}

type saveRequest struct {
	Status string `json:"status"`
}

// Save persists the session: the reconciliation row plus a full record
// snapshot. The first save creates the row; later saves overwrite it.
func (h *SessionHandler) Save(c echo.Context) error {
	s, err := h.getSession(c)
	if err != nil {
		return err
	}

	var req saveRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	status := req.Status
	if status == "" {
		status = models.ReconciliationStatusDraft
	}

	ctx := c.Request().Context()

	s.Lock()
	defer s.Unlock()

	if s.ReconciliationID == "" {
		saved, err := h.reconciliationRepo.Create(ctx, s.Name, s.Mapping, s.ColumnVisibility)
		if err != nil {
			return err
		}
		s.ReconciliationID = saved.ID
	}

	saved, err := h.reconciliationRepo.Update(ctx, s.ReconciliationID, status, s.Mapping, s.ColumnVisibility)
	if err != nil {
		return err
	}
	if saved == nil {
		return NotFound("saved reconciliation not found")
	}

	var snapshot []models.StoredRecord
	for _, source := range []models.Source{models.SourceTax, models.SourceBooks} {
		for _, rec := range s.Store.Records(source) {
			snapshot = append(snapshot, models.ToStoredRecord(s.ReconciliationID, rec))
		}
	}
	if err := h.recordRepo.ReplaceForReconciliation(ctx, s.ReconciliationID, snapshot); err != nil {
		return err
	}

	return SuccessResponse(c, saved)
}

// ListSaved lists persisted reconciliations
func (h *SessionHandler) ListSaved(c echo.Context) error {
	items, err := h.reconciliationRepo.List(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, items)
}

// Load reopens a saved reconciliation as a fresh working session
func (h *SessionHandler) Load(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	saved, err := h.reconciliationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if saved == nil {
		return NotFound("saved reconciliation not found")
	}

	stored, err := h.recordRepo.ListByReconciliation(ctx, id)
	if err != nil {
		return err
	}

	records := make([]models.Record, 0, len(stored))
	for _, sr := range stored {
		records = append(records, sr.ToRecord())
	}

	s := h.sessions.Create(saved.Name)
	s.Lock()
	defer s.Unlock()
	s.ReconciliationID = saved.ID
	s.Mapping = saved.Mapping()
	s.ColumnVisibility = saved.ColumnVisibility
	s.Store.Load(records)

	return CreatedResponse(c, toSessionResponse(s))
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

// RenameSaved renames a persisted reconciliation
func (h *SessionHandler) RenameSaved(c echo.Context) error {
	var req renameRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	saved, err := h.reconciliationRepo.Rename(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return err
	}
	if saved == nil {
		return NotFound("saved reconciliation not found")
	}
	return SuccessResponse(c, saved)
}

// DeleteSaved removes a persisted reconciliation and its records
func (h *SessionHandler) DeleteSaved(c echo.Context) error {
	if err := h.reconciliationRepo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return NoContentResponse(c)
}
