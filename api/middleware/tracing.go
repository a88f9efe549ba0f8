package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Tracing returns the New Relic middleware followed by one that tags each
// transaction with the request ID and, once authenticated, the caller.
func Tracing(app *newrelic.Application) []gin.HandlerFunc {
	return []gin.HandlerFunc{nrgin.Middleware(app), annotateTransaction}
}

func annotateTransaction(c *gin.Context) {
	c.Next()

	txn := nrgin.Transaction(c)
	if txn == nil {
		return
	}
	txn.AddAttribute("request_id", c.GetString(RequestIDContextKey))
	if caller, ok := CallerFromContext(c); ok {
		txn.AddAttribute("caller", string(caller))
	}
}
