// Package ledger assembles the retail ledger service.
package ledger

import (
	"github.com/tair/retail-ledger/internal/ledger/delivery/http"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
)

// Application is the wired ledger service
type Application struct {
	Handler     *http.LedgerHandler
	AdjustStock *command.AdjustStockHandler
}
