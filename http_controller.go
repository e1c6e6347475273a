package connect

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the connection flow over HTTP.
type HTTPController struct {
	manager *Manager
	config  HTTPConfig
	logger  Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// SuccessRedirect is the fallback redirect after a successful callback
	// when the handshake carries no return URL (default: "/dashboard/accounts").
	SuccessRedirect string

	// ErrorRedirect is the redirect for failed callbacks (default:
	// "/dashboard/accounts?error=connect_failed").
	ErrorRedirect string

	// ErrorHandler handles non-callback errors (optional).
	ErrorHandler func(ctx router.Context, err error) error

	// Logger overrides the default logger.
	Logger Logger
}

// NewHTTPController creates a controller over the account manager.
func NewHTTPController(manager *Manager, cfg HTTPConfig) *HTTPController {
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/dashboard/accounts"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/dashboard/accounts?error=connect_failed"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &HTTPController{
		manager: manager,
		config:  cfg,
		logger:  logger,
	}
}

// RegisterRoutes registers the connection routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/accounts", c.ListAccounts)
	group.Get("/callback", c.Callback)
	group.Post("/accounts/:id/refresh", c.RefreshAccount)
	group.Delete("/accounts/:id", c.DisconnectAccount)
	group.Get("/:platform", c.BeginConnect)
}

// BeginConnect starts the OAuth flow and redirects to the provider.
func (c *HTTPController) BeginConnect(ctx router.Context) error {
	platform, ok := ParsePlatform(ctx.Param("platform"))
	if !ok {
		return ctx.JSON(router.StatusNotFound, map[string]string{
			"error": ErrPlatformNotFound.Error(),
		})
	}

	var opts []ConnectOption
	if returnURL := ctx.Query("return_url"); returnURL != "" {
		opts = append(opts, WithReturnURL(returnURL))
	}

	redirect, err := c.manager.ConnectAccount(ctx.Context(), platform, opts...)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback relays the provider callback into the manager and sends the user
// back to where they left the dashboard.
func (c *HTTPController) Callback(ctx router.Context) error {
	result := c.manager.ProcessOAuthCallback(ctx.Context(), callbackParams(ctx))

	if !result.Success {
		target := appendQueryParam(c.config.ErrorRedirect, "message", result.Error)
		if result.Platform != "" {
			target = appendQueryParam(target, "platform", result.Platform.String())
		}
		return ctx.Redirect(target, http.StatusTemporaryRedirect)
	}

	target := result.ReturnURL
	if target == "" {
		target = c.config.SuccessRedirect
	}
	target = appendQueryParam(target, "connected", result.Platform.String())

	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

// ListAccounts returns the connected accounts without credentials.
func (c *HTTPController) ListAccounts(ctx router.Context) error {
	accounts := c.manager.Accounts()

	response := make([]map[string]any, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, map[string]any{
			"id":                  acc.ID,
			"platform":            acc.Platform,
			"platform_account_id": acc.PlatformAccountID,
			"display_name":        acc.DisplayName,
			"username":            acc.Username,
			"email":               acc.Email,
			"avatar_url":          acc.AvatarURL,
			"profile_url":         acc.ProfileURL,
			"followers":           acc.Followers,
			"status":              acc.Status,
			"last_sync":           acc.LastSync,
			"created_at":          acc.CreatedAt,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"accounts": response,
	})
}

// DisconnectAccount removes a connected account.
func (c *HTTPController) DisconnectAccount(ctx router.Context) error {
	c.manager.DisconnectAccount(ctx.Context(), ctx.Param("id"))

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "disconnected",
	})
}

// RefreshAccount re-enters the OAuth flow for an existing account. Returns
// the authorization URL; the client performs the navigation.
func (c *HTTPController) RefreshAccount(ctx router.Context) error {
	var opts []ConnectOption
	if returnURL := ctx.Query("return_url"); returnURL != "" {
		opts = append(opts, WithReturnURL(returnURL))
	}

	redirect, err := c.manager.RefreshAccount(ctx.Context(), ctx.Param("id"), opts...)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"redirect_url": redirect.URL,
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	var richErr *goerrors.Error
	if errors.As(err, &richErr) {
		c.logger.Error("connect controller error: %s %s",
			richErr.Error(), print.MaybePrettyJSON(richErr.Metadata))
	} else {
		c.logger.Error("connect controller error: %v", err)
	}

	redirectURL := appendQueryParam(c.config.ErrorRedirect, "message", err.Error())
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

// callbackParams rebuilds the callback query parameters through the router
// context, which only exposes keyed lookup.
func callbackParams(ctx router.Context) url.Values {
	params := url.Values{}
	for _, key := range CallbackParamKeys() {
		if value := ctx.Query(key); value != "" {
			params.Set(key, value)
		}
	}
	return params
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
