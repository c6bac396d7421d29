package handler

import (
	"net/http"
	"time"

	"github.com/tallyhq/tally/internal/ctxkeys"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

type transactionHandler struct {
	transactions *service.TransactionService
}

func NewTransactionHandler(transactions *service.TransactionService) *transactionHandler {
	return &transactionHandler{transactions: transactions}
}

func (h *transactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountCents int64     `json:"amountCents"`
		Currency    string    `json:"currency"`
		Category    string    `json:"category"`
		Note        string    `json:"note"`
		OccurredAt  time.Time `json:"occurredAt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.transactions.Record(
		ctxkeys.AccountID(r.Context()),
		req.AmountCents,
		req.Currency,
		req.Category,
		req.Note,
		req.OccurredAt,
	)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"transaction": transactionView(tx)})
}

func (h *transactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactions.List(ctxkeys.AccountID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView(tx))
	}

	respondJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

func transactionView(tx *model.Transaction) map[string]any {
	return map[string]any{
		"id":          tx.ID,
		"amountCents": tx.AmountCent,
		"currency":    tx.Currency,
		"category":    tx.Category,
		"note":        tx.Note,
		"occurredAt":  tx.OccurredAt,
		"createdAt":   tx.CreatedAt,
	}
}
