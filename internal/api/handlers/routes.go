package handlers

import (
	"net/http"

	"github.com/dvloznov/agency-ledger/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewRouter mounts every route behind the request middleware.
func NewRouter(h *Handler, log zerolog.Logger, corsOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Post("/bulk-delete", h.BulkDeleteTransactions)
			r.Post("/bulk-update", h.BulkUpdateTransactions)
			r.Post("/import/excel", h.ImportExcel)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Patch("/{id}/status", h.SetTransactionStatus)
		})

		r.Route("/bank-transactions", func(r chi.Router) {
			r.Get("/", h.ListBankTransactions)
			r.Delete("/", h.ClearBankTransactions)
			r.Post("/import", h.ImportStatement)
			r.Delete("/{id}", h.DeleteBankTransaction)
			r.Get("/{id}/candidates", h.Candidates)
			r.Post("/{id}/link", h.Link)
			r.Post("/{id}/unlink", h.Unlink)
			r.Post("/{id}/expense", h.CreateExpense)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Post("/merge", h.MergeCampaigns)
			r.Delete("/{name}", h.DeleteCampaign)
			r.Post("/{name}/rename", h.RenameCampaign)
			r.Post("/{name}/files", h.AttachFile)
			r.Post("/{name}/deliverables", h.AddDeliverable)
			r.Post("/{name}/deliverables/parse", h.ParseContract)
			r.Put("/{name}/deliverables/{id}", h.UpdateDeliverable)
			r.Delete("/{name}/deliverables/{id}", h.DeleteDeliverable)
			r.Post("/{name}/deliverables/{id}/toggle", h.ToggleDeliverable)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/annual", h.AnnualReport)
			r.Get("/vat", h.VATReport)
			r.Get("/campaigns", h.ListCampaigns)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Post("/", h.CreateContact)
			r.Get("/pipeline", h.ContactPipeline)
			r.Post("/parse", h.ParseContact)
			r.Put("/{id}", h.UpdateContact)
			r.Delete("/{id}", h.DeleteContact)
		})

		r.Route("/ratecard", func(r chi.Router) {
			r.Get("/", h.GetRateCard)
			r.Put("/", h.SetRateCard)
			r.Post("/parse", h.ParseRateCard)
			r.Post("/quote", h.Quote)
		})

		r.Get("/resources", h.ListResources)
		r.Post("/resources", h.AddResource)
		r.Delete("/resources/{id}", h.DeleteResource)

		r.Get("/entities", h.GetEntities)
		r.Post("/entities", h.AddEntity)
		r.Put("/entities/active", h.SetActiveEntity)
		r.Delete("/entities/{id}", h.DeleteEntity)

		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.SetPreferences)

		r.Get("/zoho/config", h.GetZohoConfig)
		r.Put("/zoho/config", h.SetZohoConfig)
		r.Post("/zoho/sync", h.SyncZoho)
		r.Post("/notion/sync", h.SyncNotion)
		r.Post("/warehouse/export", h.ExportWarehouse)
		r.Get("/warehouse/snapshots", h.ListSnapshots)

		r.Get("/chat", h.ChatHistory)
		r.Post("/chat", h.Ask)
		r.Delete("/chat", h.ClearChat)

		r.Get("/backup", h.ExportBackup)
		r.Post("/backup", h.ImportBackup)
		r.Post("/reset", h.Reset)

		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)
	})

	return r
}
