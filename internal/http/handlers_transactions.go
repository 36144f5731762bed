package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"fincoach/internal/core"
	applog "fincoach/internal/log"
)

// transactionRequest accepts "transaction_type" as an alias of "type".
type transactionRequest struct {
	Date            core.Date  `json:"date"`
	Description     string     `json:"description"`
	Amount          core.Money `json:"amount"`
	Category        string     `json:"category"`
	Type            string     `json:"type"`
	TransactionType string     `json:"transaction_type"`
}

func (in transactionRequest) toTransaction() (core.Transaction, error) {
	raw := in.Type
	if raw == "" {
		raw = in.TransactionType
	}
	typ, err := core.ParseTxType(raw)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Date:        in.Date,
		Description: sanitizeInput(in.Description),
		Amount:      in.Amount,
		Type:        typ,
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		cat, ok := core.LookupCategory(c)
		if !ok {
			return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, c)
		}
		tx.Category = cat
	}
	return tx, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "create_transaction", err)
		return
	}
	tx, err := in.toTransaction()
	if err != nil {
		writeServiceError(w, r, "create_transaction", err)
		return
	}
	created, err := s.svc.Transactions.Create(r.Context(), userID(r.Context()), tx)
	if err != nil {
		writeServiceError(w, r, "create_transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions.List(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"expense": core.ExpenseCategories(),
		"income":  core.IncomeCategories(),
	}
	if s.svc.Categorizer != nil {
		body["rules"] = s.svc.Categorizer.Rules()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Insights.List(r.Context(), userID(r.Context()), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, "list_insights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": list})
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Insights.Refresh(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "generate_insights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": list})
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	tooLarge := func() {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %s upload limit", humanize.IBytes(uint64(limit))))
	}
	if r.ContentLength > limit {
		tooLarge()
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	preview, err := s.svc.Imports.PreviewFile(r.Context(), header.Filename, file)
	if err != nil {
		writeServiceError(w, r, "import_preview", err)
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentImport).InfoContext(r.Context(), "Import previewed",
		applog.FieldSource, header.Filename,
		"size", humanize.IBytes(uint64(header.Size)),
		applog.FieldCount, len(preview.Transactions))
	writeJSON(w, http.StatusOK, preview)
}

type confirmRequest struct {
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	var in confirmRequest
	if err := decodeJSONLimit(w, r, &in, s.cfg.MaxUploadBytes); err != nil {
		writeServiceError(w, r, "import_confirm", err)
		return
	}
	stored, err := s.svc.Imports.Confirm(r.Context(), userID(r.Context()), in.Transactions)
	if err != nil {
		writeServiceError(w, r, "import_confirm", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transactions": stored, "count": len(stored)})
}

type sheetsRequest struct {
	Spreadsheet string `json:"spreadsheet"`
	Range       string `json:"range"`
}

func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	var in sheetsRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "import_sheets", err)
		return
	}
	preview, err := s.svc.Imports.PreviewSheet(r.Context(), in.Spreadsheet, in.Range)
	if err != nil {
		writeServiceError(w, r, "import_sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
