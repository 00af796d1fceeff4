package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/models"
	"treasury/internal/services"
)

// AccountHandler exposes read-only account balances. Balances only move
// through the cash flow endpoints.
type AccountHandler struct {
	ledger services.LedgerServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger services.LedgerServicer) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// AccountsResponse lists the active accounts of the caller's boutique and
// their combined balance.
type AccountsResponse struct {
	Accounts     []models.Account `json:"accounts"`
	TotalBalance decimal.Decimal  `json:"total_balance" swaggertype:"string"`
}

// GetAccounts lists active accounts
// @Summary     List accounts
// @Description Active accounts of the caller's boutique, default account first
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} AccountsResponse "Accounts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accounts, err := h.ledger.ListActiveAccounts(c.Request.Context(), actor.BoutiqueID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.CurrentBalance)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}

	c.JSON(http.StatusOK, AccountsResponse{Accounts: accounts, TotalBalance: total})
}

// GetAccount returns one account
// @Summary     Get an account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account "Account"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.ledger.GetAccount(c.Request.Context(), actor.BoutiqueID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
