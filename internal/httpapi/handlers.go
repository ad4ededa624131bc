package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/export"
	"github.com/Bodin4747/CheikysAdmin/internal/service"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	ctx := service.WithActor(r.Context(), domain.Actor{Username: normalizeUsername(req.Username), Role: resp.Role})
	a.service.RecordAudit(ctx, "login", "user", normalizeUsername(req.Username), "")
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many attempts"))
		return
	}

	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.auth.BootstrapOwner(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ctx := service.WithActor(r.Context(), domain.Actor{Username: user.Username, Role: user.Role})
	a.service.RecordAudit(ctx, "user_bootstrap", "user", user.Username, "")
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"username": actor.Username,
		"role":     actor.Role,
	})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": updated})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCheckoutQuote(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	quote, err := a.service.QuoteCheckout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleRecentSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 20, 200)
	sales, err := a.service.RecentSales(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleReprint(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.ReprintReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReceiptPreview(w http.ResponseWriter, r *http.Request) {
	var ticket domain.Ticket
	if err := decodeJSON(r, &ticket); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.PreviewReceipt(r.Context(), ticket)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type cutRequest struct {
	Date string `json:"date"`
}

func (a *API) handleRunCut(w http.ResponseWriter, r *http.Request) {
	var req cutRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.RunDailyCut(r.Context(), req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (a *API) handleListCuts(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	cuts, err := a.service.ListCuts(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cuts": cuts})
}

func (a *API) handleGetCut(w http.ResponseWriter, r *http.Request) {
	cut, err := a.service.GetCut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cut": cut})
}

func reportFormat(r *http.Request) (string, error) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "", export.FormatJSON:
		return export.FormatJSON, nil
	case export.FormatCSV, export.FormatXLSX, export.FormatPDF:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	format, err := reportFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query := r.URL.Query()
	report, err := a.service.SalesByRange(r.Context(), domain.SalesRangeQuery{
		From:          query.Get("from"),
		To:            query.Get("to"),
		PaymentMethod: query.Get("payment_method"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, report)
		return
	}
	name := fmt.Sprintf("ventas-%s-%s", report.From, report.To)
	writeExport(w, format, name, export.SalesRangeTable(report, a.service.Location()))
}

func (a *API) handleProductReport(w http.ResponseWriter, r *http.Request) {
	format, err := reportFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query := r.URL.Query()
	report, err := a.service.ProductStats(r.Context(), domain.SalesRangeQuery{
		From:     query.Get("from"),
		To:       query.Get("to"),
		Category: query.Get("category"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, report)
		return
	}
	name := fmt.Sprintf("productos-%s-%s", report.From, report.To)
	writeExport(w, format, name, export.ProductStatsTable(report))
}

// writeExport renders the whole document before sending headers so a
// rendering failure still produces a clean 500.
func writeExport(w http.ResponseWriter, format string, name string, table export.Table) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	if format != export.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+export.Extension(format)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleTodaySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.TodaySummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 5, 50)
	products, err := a.service.TopProducts(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := a.service.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	orders, err := a.service.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.DeliverOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.LoadSettings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleUpdatePrinterSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.PrinterSettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	printer, err := a.service.UpdatePrinterSettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"printer": printer})
}

func (a *API) handleUpdateTaxSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.TaxSettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tax, err := a.service.UpdateTaxSettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tax": tax})
}

func (a *API) handleUpdateCurrencySettings(w http.ResponseWriter, r *http.Request) {
	var req domain.CurrencySettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	currency, err := a.service.UpdateCurrencySettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"currency": currency})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context())})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.service.RecordAudit(r.Context(), "user_create", "user", user.Username, user.Role)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	user, err := a.auth.UpdateUser(r.Context(), actor, chi.URLParam(r, "username"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.service.RecordAudit(r.Context(), "user_update", "user", user.Username, "")
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	username := chi.URLParam(r, "username")
	if err := a.auth.DeleteUser(r.Context(), actor, username); err != nil {
		writeServiceError(w, err)
		return
	}
	a.service.RecordAudit(r.Context(), "user_delete", "user", normalizeUsername(username), "")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), date, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
