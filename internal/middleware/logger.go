package middleware

import (
	"context"

	"github.com/ecosteps/backend/pkg/router"
	"github.com/ecosteps/backend/pkg/xcontext"
)

func Logger() router.CloserFunc {
	return func(ctx context.Context) {
		req := xcontext.HTTPRequest(ctx)
		xcontext.Logger(ctx).Infof("%s | %s", req.Method, req.URL.Path)
	}
}
