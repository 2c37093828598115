package xcontext

import (
	"context"
	"net/http"

	"github.com/ecosteps/backend/config"
	"github.com/ecosteps/backend/pkg/authenticator"
	"github.com/ecosteps/backend/pkg/logger"

	"gorm.io/gorm"
)

type (
	dbKey          struct{}
	loggerKey      struct{}
	configsKey     struct{}
	tokenEngineKey struct{}
	requestUserKey struct{}
	httpRequestKey struct{}
	httpWriterKey  struct{}
)

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

func DB(ctx context.Context) *gorm.DB {
	return ctx.Value(dbKey{}).(*gorm.DB)
}

func WithLogger(ctx context.Context, l logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Logger(ctx context.Context) logger.Logger {
	return ctx.Value(loggerKey{}).(logger.Logger)
}

func WithConfigs(ctx context.Context, configs config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, configs)
}

func Configs(ctx context.Context) config.Configs {
	return ctx.Value(configsKey{}).(config.Configs)
}

func WithTokenEngine(ctx context.Context, engine authenticator.TokenEngine) context.Context {
	return context.WithValue(ctx, tokenEngineKey{}, engine)
}

func TokenEngine(ctx context.Context) authenticator.TokenEngine {
	return ctx.Value(tokenEngineKey{}).(authenticator.TokenEngine)
}

func WithRequestUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, requestUserKey{}, userID)
}

// RequestUserID returns the id of the authenticated user, or an empty string
// for unauthenticated requests.
func RequestUserID(ctx context.Context) string {
	userID, ok := ctx.Value(requestUserKey{}).(string)
	if !ok {
		return ""
	}

	return userID
}

func WithHTTPRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, r)
}

func HTTPRequest(ctx context.Context) *http.Request {
	return ctx.Value(httpRequestKey{}).(*http.Request)
}

func WithHTTPWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, httpWriterKey{}, w)
}

func HTTPWriter(ctx context.Context) http.ResponseWriter {
	return ctx.Value(httpWriterKey{}).(http.ResponseWriter)
}
