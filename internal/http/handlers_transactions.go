package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"dealtrack/internal/auth"
	"dealtrack/internal/core"
	"dealtrack/internal/storage"
)

// transactionRow is the list view model: everything pre-formatted so the
// template stays dumb.
type transactionRow struct {
	ID         string
	ClientName string
	Type       string
	Status     string
	Location   string
	Price      string
	GCI        string
	AgentNet   string
	LeadSource string
	Updated    string
}

func listCacheKey(userID string, status core.TransactionStatus) string {
	return userID + "|" + string(status)
}

func (s *Server) getTransactions(ctx context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error) {
	key := listCacheKey(userID, status)
	if items, found := s.listCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		result := make([]core.Transaction, len(items))
		copy(result, items)
		return result, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	items, err := s.txns.List(cctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	s.listCache.Set(key, items)
	return items, nil
}

func (s *Server) invalidateTransactions(userID string) {
	for _, status := range []core.TransactionStatus{"", core.StatusActive, core.StatusPending, core.StatusClosed} {
		s.listCache.Delete(listCacheKey(userID, status))
	}
}

func buildTransactionRows(items []core.Transaction) []transactionRow {
	rows := make([]transactionRow, 0, len(items))
	for _, t := range items {
		price := t.ListPriceCents
		if t.Type == core.TypeBuyer {
			price = t.BuyerBudgetCents
		}
		var parts []string
		for _, p := range []string{t.PropertyAddress, t.City, t.State} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		rows = append(rows, transactionRow{
			ID:         t.ID,
			ClientName: t.ClientName,
			Type:       string(t.Type),
			Status:     string(t.Status),
			Location:   strings.Join(parts, ", "),
			Price:      formatDollars(price),
			GCI:        formatDollars(t.GCICents),
			AgentNet:   formatDollars(core.AgentNetCents(t)),
			LeadSource: t.LeadSource,
			Updated:    t.UpdatedAt.Format("2006-01-02"),
		})
	}
	return rows
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	principal, err := auth.FromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// The list itself arrives as an HTMX partial on load.
	data := struct {
		UserName string
	}{UserName: principal.Name}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTransactionList renders the transaction table partial.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	principal, err := auth.FromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// Optional ?status= filter; anything unrecognized means no filter.
	status := core.TransactionStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		status = ""
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	items, err := s.getTransactions(r.Context(), principal.ID, status)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list error", "error", err, "user_id", principal.ID)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading transactions</div>`))
		return
	}

	data := struct {
		Status       string
		Transactions []transactionRow
	}{Status: string(status), Transactions: buildTransactionRows(items)}

	if err := s.templates.ExecuteTemplate(w, "transaction_list.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Transaction list template failed", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering transactions</div>`))
	}
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	principal, err := auth.FromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id := sanitizeText(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}

	if err := s.txns.Delete(r.Context(), principal.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Transaction not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction",
			"error", err, "transaction_id", id, "user_id", principal.ID)
		InternalServerError("Error deleting transaction").Write(w)
		return
	}

	s.invalidateTransactions(principal.ID)

	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transaction deleted").
		BodyHTML(`<div class="success">Transaction deleted (` + template.HTMLEscapeString(id) + `)</div>`).
		Write(w)
}
