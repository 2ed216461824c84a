package records

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/session"
)

// Lister はレシピ一覧を取得できるストアが実装します。
type Lister interface {
	List(ctx context.Context) ([]Recipe, error)
}

// HomeHandler は GET /home のハンドラーを返します。session.RequireLogin の後段で使います。
func HomeHandler(store Lister, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := session.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, session.LoginPath)
			return
		}

		recipes, err := store.List(c.Request.Context())
		if err != nil {
			logger.Error(c.Request.Context(), "failed to list recipes", "error", err)
			c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		c.HTML(http.StatusOK, "home.html", gin.H{
			"User":    user,
			"Recipes": recipes,
		})
	}
}
