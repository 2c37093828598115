package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/ecosteps/backend/config"
	"github.com/ecosteps/backend/pkg/authenticator"
	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/logger"
	"github.com/ecosteps/backend/pkg/xcontext"

	"gorm.io/gorm"
)

// HandlerFunc is the signature of all domain methods exposed over HTTP.
type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before the handler. It can enrich the context or stop
// the request by returning an error.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response has been written.
type CloserFunc func(ctx context.Context)

type Router struct {
	mux *http.ServeMux

	db          *gorm.DB
	configs     config.Configs
	logger      logger.Logger
	tokenEngine authenticator.TokenEngine

	befores []MiddlewareFunc
	closers []CloserFunc
}

func New(db *gorm.DB, configs config.Configs, logger logger.Logger) *Router {
	return &Router{
		mux:         http.NewServeMux(),
		db:          db,
		configs:     configs,
		logger:      logger,
		tokenEngine: authenticator.NewTokenEngine(configs.Auth.TokenSecret),
	}
}

// Branch creates a router sharing the same mux but with an independent
// middleware chain.
func (r *Router) Branch() *Router {
	clone := *r
	clone.befores = append([]MiddlewareFunc{}, r.befores...)
	clone.closers = append([]CloserFunc{}, r.closers...)
	return &clone
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func (r *Router) AddCloser(closer CloserFunc) {
	r.closers = append(r.closers, closer)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrapHandler(r, http.MethodPost, handler))
}

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) http.HandlerFunc {
	befores := append([]MiddlewareFunc{}, router.befores...)
	closers := append([]CloserFunc{}, router.closers...)

	return func(w http.ResponseWriter, httpReq *http.Request) {
		if httpReq.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		ctx := httpReq.Context()
		ctx = xcontext.WithDB(ctx, router.db)
		ctx = xcontext.WithConfigs(ctx, router.configs)
		ctx = xcontext.WithLogger(ctx, router.logger)
		ctx = xcontext.WithTokenEngine(ctx, router.tokenEngine)
		ctx = xcontext.WithHTTPRequest(ctx, httpReq)
		ctx = xcontext.WithHTTPWriter(ctx, w)

		defer func() {
			for _, closer := range closers {
				closer(ctx)
			}
		}()

		var err error
		for _, before := range befores {
			ctx, err = before(ctx)
			if err != nil {
				writeResponse(ctx, w, newErrorResponse(err))
				return
			}
		}

		var req Request
		if err := decodeRequest(httpReq, &req); err != nil {
			writeResponse(ctx, w,
				newErrorResponse(errorx.New(errorx.BadRequest, "Cannot parse the request")))
			return
		}

		resp, err := handler(ctx, &req)
		if err != nil {
			writeResponse(ctx, w, newErrorResponse(err))
			return
		}

		writeResponse(ctx, w, newResponse(resp))
	}
}

func decodeRequest(httpReq *http.Request, req any) error {
	switch httpReq.Method {
	case http.MethodGet:
		return decodeQuery(httpReq.URL.Query(), req)
	case http.MethodPost:
		mediaType, _, err := mime.ParseMediaType(httpReq.Header.Get("Content-Type"))
		if err == nil && mediaType == "multipart/form-data" {
			// The handler reads files directly from the http request.
			return nil
		}

		body, err := io.ReadAll(httpReq.Body)
		if err != nil {
			return err
		}

		if len(body) == 0 {
			return nil
		}

		return json.Unmarshal(body, req)
	}

	return errors.New("unsupported method")
}

// decodeQuery fills a request struct from url query parameters. Field names
// are taken from json tags.
func decodeQuery(values url.Values, req any) error {
	v := reflect.ValueOf(req).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		s := values.Get(name)
		if s == "" {
			continue
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			field.SetBool(b)
		default:
			return errors.New("unsupported query parameter type " + field.Kind().String())
		}
	}

	return nil
}
