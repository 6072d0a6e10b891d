package handler

import (
	"errors"
	"net/http"

	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/form"
	"github.com/askcn/ask/model"
	"github.com/askcn/ask/store"
)

func init() {
	base.Air.BATCH(getHeadMethods, "/question/:ID", hQuestionPage, noStoreCachemanGas)
	base.Air.POST("/question/:ID", hAnswer)
	base.Air.POST("/question/:ID/like", hLike)
	base.Air.BATCH(getPostMethods, "/ask", hAsk, noStoreCachemanGas)
}

// question returns the question identified by the ID param of the req. It
// returns nil without an error if there is no such question.
func question(req *air.Request) (*model.Question, error) {
	id, ok := paramID(req, "ID")
	if !ok {
		return nil, nil
	}

	q, err := qaStore.Question(req.Context, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}

	return q, err
}

// hQuestionPage handles requests to get a question page.
func hQuestionPage(req *air.Request, res *air.Response) error {
	q, err := question(req)
	if err != nil {
		return err
	} else if q == nil {
		return req.Air.NotFoundHandler(req, res)
	}

	return renderQuestion(req, res, q, &form.Answer{})
}

// renderQuestion renders the page of the q with the answer form f.
func renderQuestion(
	req *air.Request,
	res *air.Response,
	q *model.Question,
	f *form.Answer,
) error {
	answers, err := qaStore.Answers(req.Context, q.ID)
	if err != nil {
		return err
	}

	return render(req, res, "question.html", map[string]interface{}{
		"PageTitle":     q.Title,
		"CanonicalPath": questionPath(q.ID),
		"Question":      q,
		"Answers":       answers,
		"Form":          f,
	})
}

// hAnswer handles requests to answer a question.
func hAnswer(req *air.Request, res *air.Response) error {
	q, err := question(req)
	if err != nil {
		return err
	} else if q == nil {
		return req.Air.NotFoundHandler(req, res)
	}

	u, ok, err := requireUser(req, res)
	if !ok {
		return err
	}

	f := &form.Answer{Text: paramString(req, "text")}
	if !f.Validate() {
		res.Status = http.StatusBadRequest
		return renderQuestion(req, res, q, f)
	}

	a, err := qaStore.CreateAnswer(req.Context, model.Answer{
		Text:       f.Text,
		AddedAt:    now(),
		QuestionID: q.ID,
		AuthorID:   u.ID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return req.Air.NotFoundHandler(req, res)
	} else if err != nil {
		return err
	}

	answersPostedTotal.Inc()
	base.Logger.Debug().
		Int64("answer_id", a.ID).
		Int64("question_id", q.ID).
		Msg("answer posted")

	return redirect(res, questionPath(a.QuestionID))
}

// hLike handles requests to like a question.
func hLike(req *air.Request, res *air.Response) error {
	q, err := question(req)
	if err != nil {
		return err
	} else if q == nil {
		return req.Air.NotFoundHandler(req, res)
	}

	u, ok, err := requireUser(req, res)
	if !ok {
		return err
	}

	liked, err := qaStore.LikeQuestion(req.Context, q.ID, u.ID, now())
	if errors.Is(err, store.ErrNotFound) {
		return req.Air.NotFoundHandler(req, res)
	} else if err != nil {
		return err
	}

	if liked {
		likesTotal.Inc()
	}

	return redirect(res, questionPath(q.ID))
}

// hAsk handles requests to ask a question.
func hAsk(req *air.Request, res *air.Response) error {
	u, ok, err := requireUser(req, res)
	if !ok {
		return err
	}

	f := &form.Ask{}
	if req.Method == http.MethodPost {
		f.Title = paramString(req, "title")
		f.Text = paramString(req, "text")
		if f.Validate() {
			q, err := qaStore.CreateQuestion(
				req.Context,
				model.Question{
					Title:    f.Title,
					Text:     f.Text,
					AddedAt:  now(),
					AuthorID: u.ID,
				},
			)
			if err != nil {
				return err
			}

			questionsAskedTotal.Inc()
			base.Logger.Debug().
				Int64("question_id", q.ID).
				Int64("user_id", u.ID).
				Msg("question asked")

			return redirect(res, questionPath(q.ID))
		}

		res.Status = http.StatusBadRequest
	}

	return render(req, res, "ask.html", map[string]interface{}{
		"PageTitle":     req.LocalizedString("Ask a question"),
		"CanonicalPath": "/ask",
		"Form":          f,
	})
}
