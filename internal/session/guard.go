package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireCustomer redirects anyone but an authenticated customer to the
// login page.
func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Get(c).IsCustomer() {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCustomerJSON answers unauthenticated JSON calls with body.
func RequireCustomerJSON(body gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Get(c).IsCustomer() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, body)
			return
		}
		c.Next()
	}
}
