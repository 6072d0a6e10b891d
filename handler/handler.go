package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/air-gases/cacheman"
	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/model"
	"github.com/askcn/ask/store"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// qaStore is the store of the site records.
	qaStore *store.Store

	// pageSize is the number of questions per page.
	pageSize = 10

	// getHeadMethods is an array contains the GET and HEAD methods.
	getHeadMethods = []string{http.MethodGet, http.MethodHead}

	// getPostMethods is an array contains the GET and POST methods.
	getPostMethods = []string{http.MethodGet, http.MethodPost}

	// hourlyCachemanGas is used to manage the Cache-Control header.
	hourlyCachemanGas = cacheman.Gas(cacheman.GasConfig{
		Public:  true,
		MaxAge:  3600,
		SMaxAge: -1,
	})

	// noStoreCachemanGas keeps pages that show the current user out of
	// caches.
	noStoreCachemanGas = cacheman.Gas(cacheman.GasConfig{
		MustRevalidate: true,
		NoCache:        true,
		NoStore:        true,
		MaxAge:         -1,
		SMaxAge:        -1,
	})

	// markdown converts question and answer texts to HTML. Raw HTML in the
	// texts is escaped.
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

func init() {
	base.Air.NotFoundHandler = NotFound
	base.Air.MethodNotAllowedHandler = MethodNotAllowed
	base.Air.ErrorHandler = Error
	base.Air.Gases = append(base.Air.Gases, metricGas, sessionGas)

	if base.Air.RendererTemplateFuncMap == nil {
		base.Air.RendererTemplateFuncMap = map[string]interface{}{}
	}

	base.Air.RendererTemplateFuncMap["markdown"] = renderMarkdown
	base.Air.RendererTemplateFuncMap["timefmt"] = base.FormatTime
	base.Air.RendererTemplateFuncMap["thousands"] = thousandsCommaSeperated

	base.Air.BATCH(
		getHeadMethods,
		"/",
		hQuestionList(model.OrderDefault, "Questions", "/"),
		noStoreCachemanGas,
	)
	base.Air.BATCH(
		getHeadMethods,
		"/new",
		hQuestionList(model.OrderNew, "New questions", "/new"),
		noStoreCachemanGas,
	)
	base.Air.BATCH(
		getHeadMethods,
		"/popular",
		hQuestionList(
			model.OrderPopular,
			"Popular questions",
			"/popular",
		),
		noStoreCachemanGas,
	)
}

// registerStaticRoutes registers the routes of the static files found in the
// root and in the `base.Air.CofferAssetRoot`.
func registerStaticRoutes(root string) {
	base.Air.FILE("/robots.txt", filepath.Join(root, "robots.txt"))
	base.Air.FILE(
		"/favicon.ico",
		filepath.Join(root, "favicon.ico"),
		hourlyCachemanGas,
	)
	base.Air.FILES("/assets", base.Air.CofferAssetRoot, hourlyCachemanGas)
}

// NotFound returns not found error.
func NotFound(req *air.Request, res *air.Response) error {
	res.Status = http.StatusNotFound
	return errors.New(strings.ToLower(http.StatusText(res.Status)))
}

// MethodNotAllowed returns method not allowed error.
func MethodNotAllowed(req *air.Request, res *air.Response) error {
	res.Status = http.StatusMethodNotAllowed
	return errors.New(strings.ToLower(http.StatusText(res.Status)))
}

// Error handles errors.
func Error(err error, req *air.Request, res *air.Response) {
	if res.Written {
		return
	}

	if res.Status < http.StatusBadRequest {
		res.Status = http.StatusInternalServerError
	}

	if res.Status == http.StatusInternalServerError {
		base.Logger.Error().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("request error")
	}

	if !req.Air.DebugMode && res.Status == http.StatusInternalServerError {
		res.WriteString(strings.ToLower(http.StatusText(res.Status)))
	} else {
		res.WriteString(err.Error())
	}
}

// hQuestionList returns a handler that handles requests to get a page of the
// questions listed in the order o.
func hQuestionList(o model.Order, title, path string) air.Handler {
	return func(req *air.Request, res *air.Response) error {
		total, err := qaStore.CountQuestions(req.Context)
		if err != nil {
			return err
		}

		page, err := model.Paginate(total, paramString(req, "page"), pageSize)
		if err != nil {
			return req.Air.NotFoundHandler(req, res)
		}

		questions, err := qaStore.Questions(
			req.Context,
			o,
			page.Limit,
			page.Offset,
		)
		if err != nil {
			return err
		}

		return render(req, res, "questions.html", map[string]interface{}{
			"PageTitle":     req.LocalizedString(title),
			"CanonicalPath": path,
			"Order":         o.String(),
			"Questions":     questions,
			"Page":          page,
		})
	}
}

// render renders the tmpl inside the default layout with the data and the
// current user.
func render(
	req *air.Request,
	res *air.Response,
	tmpl string,
	data map[string]interface{},
) error {
	data["CurrentUser"] = currentUser(req)
	return res.Render(data, tmpl, "layouts/default.html")
}

// redirect redirects the client to the url with 302.
func redirect(res *air.Response, url string) error {
	res.Status = http.StatusFound
	return res.Redirect(url)
}

// paramString returns the first value of the param named by the name, or an
// empty string if there is no such param.
func paramString(req *air.Request, name string) string {
	if pv := req.ParamValue(name); pv != nil {
		return pv.String()
	}

	return ""
}

// paramID returns the ID carried by the param named by the name.
func paramID(req *air.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(paramString(req, name), 10, 64)
	return id, err == nil && id > 0
}

// renderMarkdown renders the s as HTML.
func renderMarkdown(s string) template.HTML {
	buf := bytes.Buffer{}
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}

	return template.HTML(buf.String())
}

// questionPath returns the path of the question identified by the id.
func questionPath(id int64) string {
	return "/question/" + strconv.FormatInt(id, 10)
}

// now returns the current time. It is replaced in tests.
var now = time.Now

// thousandsCommaSeperated returns a thousands comma seperated string for the n.
func thousandsCommaSeperated(n int64) string {
	in := strconv.FormatInt(n, 10)
	numOfDigits := len(in)
	if n < 0 {
		numOfDigits--
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}
		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}
