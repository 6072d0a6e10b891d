package model

import "html/template"

// QA is a frequently asked question and its rendered answer.
type QA struct {
	ID       string
	Question string
	Answer   template.HTML
}
