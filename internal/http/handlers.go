package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ventas/internal/core"
	"ventas/internal/ledger"
)

// SaleResponse is a sale plus its derived read-only fields.
type SaleResponse struct {
	*core.Sale
	Balance      core.Money  `json:"balance"`
	Status       core.Status `json:"status"`
	PaymentCount int         `json:"payment_count"`
}

func newSaleResponse(s *core.Sale) SaleResponse {
	return SaleResponse{
		Sale:         s,
		Balance:      s.Balance(),
		Status:       s.Status(),
		PaymentCount: s.PaymentCount(),
	}
}

func newSaleResponses(sales []*core.Sale) []SaleResponse {
	out := make([]SaleResponse, len(sales))
	for i, s := range sales {
		out[i] = newSaleResponse(s)
	}
	return out
}

// createSaleRequest carries the string-typed fields of a creation
// request; amounts arrive as decimal strings exactly as typed.
type createSaleRequest struct {
	Client     string   `json:"client"`
	Total      string   `json:"total"`
	Deposit    string   `json:"deposit"`
	Categories []string `json:"categories"`
	SaleDate   string   `json:"sale_date"`
}

type applyPaymentRequest struct {
	Amount string `json:"amount"`
	Kind   string `json:"kind"`
}

type closeMonthRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": s.svc.Registry().All()})
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req = createSaleRequest{
			Client:     r.Form.Get("client"),
			Total:      r.Form.Get("total"),
			Deposit:    r.Form.Get("deposit"),
			Categories: r.Form["categories"],
			SaleDate:   r.Form.Get("sale_date"),
		}
	}

	total, err := core.ParseMoney(req.Total)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	deposit, err := core.ParseMoney(req.Deposit)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	in := ledger.CreateInput{
		Client:     req.Client,
		Total:      total,
		Deposit:    deposit,
		Categories: req.Categories,
	}
	if strings.TrimSpace(req.SaleDate) != "" {
		date, err := core.ParseDate(req.SaleDate)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		in.SaleDate = date
	}

	sale, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSaleResponse(sale))
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	// The default listing covers open sales; ?status=all returns every
	// record, including settled and excluded ones.
	if r.URL.Query().Get("status") == "all" {
		sales, err := s.svc.ListAll(r.Context())
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": newSaleResponses(sales)})
		return
	}

	query := r.URL.Query().Get("q")
	sales, err := s.svc.SearchByClient(r.Context(), query)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": newSaleResponses(sales)})
}

func (s *Server) handleListExcluded(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.ListExcluded(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": newSaleResponses(sales)})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sale, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaleResponse(sale))
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	existed, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": existed})
}

func (s *Server) handleApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req applyPaymentRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req = applyPaymentRequest{
			Amount: r.Form.Get("amount"),
			Kind:   r.Form.Get("kind"),
		}
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	sale, err := s.svc.ApplyPayment(r.Context(), id, amount, req.Kind)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaleResponse(sale))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Summary(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePeriodStats(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	stats, err := s.svc.PeriodQuery(r.Context(), start, end)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	// Render the raw sales with derived fields too.
	writeJSON(w, http.StatusOK, struct {
		core.PeriodStats
		Sales []SaleResponse `json:"sales"`
	}{PeriodStats: stats, Sales: newSaleResponses(stats.Sales)})
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	var req closeMonthRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Month = formInt(r, "month")
		req.Year = formInt(r, "year")
	}

	summary, err := s.svc.CloseMonth(r.Context(), req.Month, req.Year)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePendingClose(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.PendingClose(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": newSaleResponses(sales)})
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func formInt(r *http.Request, key string) int {
	v := strings.TrimSpace(r.Form.Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError maps engine errors onto HTTP statuses. The three
// error kinds stay distinguishable for API clients.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrSaleClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Unexpected ledger error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
