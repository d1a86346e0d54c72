package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookworm/library-api/internal/api/middleware"
	"github.com/bookworm/library-api/internal/api/shared"
	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/service"
)

// LoanResponse represents the response data for a loan.
type LoanResponse struct {
	ID            string     `json:"id"`
	BorrowerID    string     `json:"borrower_id"`
	BorrowerName  string     `json:"borrower_name"`
	BorrowerEmail string     `json:"borrower_email"`
	TitleID       string     `json:"title_id"`
	TitleName     string     `json:"title_name"`
	Price         float64    `json:"price"`
	BorrowDate    time.Time  `json:"borrow_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Fine          float64    `json:"fine"`
}

// ReturnResponse represents the response data for a completed return.
type ReturnResponse struct {
	LoanID string  `json:"loan_id"`
	Fine   float64 `json:"fine"`
}

// LoanHandler handles circulation HTTP requests.
type LoanHandler struct {
	circulation service.CirculationService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(circulation service.CirculationService) *LoanHandler {
	return &LoanHandler{
		circulation: circulation,
	}
}

// Borrow handles POST /api/loans/{titleID} requests.
// The borrower is the authenticated caller.
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := middleware.GetBorrowerID(r)
	if !ok || borrowerID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Borrower ID not found or invalid")
		return
	}

	titleID, err := uuid.Parse(chi.URLParam(r, "titleID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid title ID")
		return
	}

	loan, err := h.circulation.Borrow(r.Context(), titleID, borrowerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, loanToResponse(loan))
}

// Return handles PUT /api/loans/{loanID}/return requests.
// The fine owed, zero when the book comes back on time, is in the response.
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid loan ID")
		return
	}

	fine, err := h.circulation.Return(r.Context(), loanID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReturnResponse{
		LoanID: loanID.String(),
		Fine:   fine,
	})
}

// ListMine handles GET /api/loans/mine requests, returning the caller's
// active loans.
func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	borrowerID, ok := middleware.GetBorrowerID(r)
	if !ok || borrowerID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Borrower ID not found or invalid")
		return
	}

	loans, err := h.circulation.ListActiveLoans(r.Context(), borrowerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, loansToResponse(loans))
}

// ListAll handles GET /api/loans requests, returning the full circulation
// ledger. Restricted to admins by the route's RequireAdmin middleware.
func (h *LoanHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	loans, err := h.circulation.ListAllLoans(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, loansToResponse(loans))
}

// loanToResponse converts a domain.Loan to a LoanResponse.
func loanToResponse(loan *domain.Loan) LoanResponse {
	return LoanResponse{
		ID:            loan.ID.String(),
		BorrowerID:    loan.BorrowerID.String(),
		BorrowerName:  loan.BorrowerName,
		BorrowerEmail: loan.BorrowerEmail,
		TitleID:       loan.TitleID.String(),
		TitleName:     loan.TitleName,
		Price:         loan.Price,
		BorrowDate:    loan.BorrowDate,
		DueDate:       loan.DueDate,
		ReturnDate:    loan.ReturnDate,
		Fine:          loan.Fine,
	}
}

func loansToResponse(loans []*domain.Loan) []LoanResponse {
	responses := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		responses[i] = loanToResponse(loan)
	}
	return responses
}
