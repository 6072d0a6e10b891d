package handler

import (
	"strings"

	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/model"
)

func init() {
	base.Air.BATCH(getHeadMethods, "/search", hSearch, noStoreCachemanGas)
}

// hSearch handles requests to search questions.
func hSearch(req *air.Request, res *air.Response) error {
	query := strings.TrimSpace(paramString(req, "q"))
	data := map[string]interface{}{
		"PageTitle":     req.LocalizedString("Search"),
		"CanonicalPath": "/search",
		"Query":         query,
	}

	if query == "" {
		return render(req, res, "search.html", data)
	}

	total, err := qaStore.CountSearch(req.Context, query)
	if err != nil {
		return err
	}

	page, err := model.Paginate(total, paramString(req, "page"), pageSize)
	if err != nil {
		return req.Air.NotFoundHandler(req, res)
	}

	questions, err := qaStore.SearchQuestions(
		req.Context,
		query,
		page.Limit,
		page.Offset,
	)
	if err != nil {
		return err
	}

	data["Questions"] = questions
	data["Page"] = page

	return render(req, res, "search.html", data)
}
