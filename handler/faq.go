package handler

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/model"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

var (
	// faqRoot is the directory of the FAQ files.
	faqRoot = "qas"

	// faqs is the cache of the parsed FAQ. Nil means stale.
	faqs   []*faq
	faqsMu sync.Mutex
)

// faq is a frequently asked question in all its translations.
type faq struct {
	ID string

	languageMatcher language.Matcher
	tags            []language.Tag
	questions       map[string]string
	answers         map[string]template.HTML
}

// localize returns the f translated for the locale, which is an
// Accept-Language value.
func (f *faq) localize(locale string) *model.QA {
	_, i := language.MatchStrings(f.languageMatcher, locale)
	t := f.tags[i].String()
	return &model.QA{
		ID:       f.ID,
		Question: f.questions[t],
		Answer:   f.answers[t],
	}
}

func init() {
	base.Air.BATCH(getHeadMethods, "/faq", hFAQPage, noStoreCachemanGas)
}

// watchFAQs invalidates the FAQ cache whenever the `faqRoot` changes.
func watchFAQs() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	} else if err := w.Add(faqRoot); err != nil {
		w.Close()
		return err
	}

	done := make(chan struct{})
	base.Air.AddShutdownJob(func() {
		close(done)
		w.Close()
	})

	go func() {
		for {
			select {
			case <-w.Events:
				faqsMu.Lock()
				faqs = nil
				faqsMu.Unlock()
			case err := <-w.Errors:
				if err != nil {
					base.Logger.Error().Err(err).
						Msg("faq watcher error")
				}
			case <-done:
				return
			}
		}
	}()

	return nil
}

// loadFAQs returns the FAQ, parsing it if the cache is stale.
func loadFAQs() []*faq {
	faqsMu.Lock()
	defer faqsMu.Unlock()
	if faqs == nil {
		faqs = parseFAQs(faqRoot, base.Air.I18nLocaleBase)
	}

	return faqs
}

// hFAQPage handles requests to get FAQ page.
func hFAQPage(req *air.Request, res *air.Response) error {
	locale := req.Header.Get("Accept-Language")

	fs := loadFAQs()
	qas := make([]*model.QA, 0, len(fs))
	for _, f := range fs {
		qas = append(qas, f.localize(locale))
	}

	return render(req, res, "faq.html", map[string]interface{}{
		"PageTitle":     req.LocalizedString("FAQ"),
		"CanonicalPath": "/faq",
		"IsFAQPage":     true,
		"QAs":           qas,
	})
}

// parseFAQs parses the FAQ files in the root. Each file is named
// "<id>.<locale>.md" and starts with a TOML front matter between two "+++"
// lines that carries the question. The rest of the file is the markdown
// answer. The baseLocale is preferred when no translation matches.
func parseFAQs(root, baseLocale string) []*faq {
	des, err := os.ReadDir(root)
	if err != nil {
		base.Logger.Warn().Err(err).
			Str("root", root).
			Msg("failed to read faq root")
		return []*faq{}
	}

	nfaqs := map[string]*faq{}
	for _, de := range des {
		if de.IsDir() || filepath.Ext(de.Name()) != ".md" {
			continue
		}

		n := strings.TrimSuffix(de.Name(), ".md")

		tag, err := language.Parse(strings.TrimPrefix(filepath.Ext(n), "."))
		if err != nil {
			continue
		}

		id := strings.TrimSuffix(n, filepath.Ext(n))
		if id == "" {
			continue
		}

		b, err := os.ReadFile(filepath.Join(root, de.Name()))
		if err != nil {
			continue
		}

		question, answer, ok := splitFrontMatter(b)
		if !ok {
			continue
		}

		f, ok := nfaqs[id]
		if !ok {
			f = &faq{
				ID:        id,
				questions: map[string]string{},
				answers:   map[string]template.HTML{},
			}
			nfaqs[id] = f
		}

		f.questions[tag.String()] = question
		f.answers[tag.String()] = renderMarkdown(string(answer))
		f.tags = append(f.tags, tag)
	}

	fs := make([]*faq, 0, len(nfaqs))
	for _, f := range nfaqs {
		sort.SliceStable(f.tags, func(i, j int) bool {
			return f.tags[i].String() == baseLocale &&
				f.tags[j].String() != baseLocale
		})
		f.languageMatcher = language.NewMatcher(f.tags)
		fs = append(fs, f)
	}

	sort.Slice(fs, func(i, j int) bool {
		return fs[i].ID < fs[j].ID
	})

	return fs
}

// splitFrontMatter splits the b into the question of its front matter and its
// body.
func splitFrontMatter(b []byte) (string, []byte, bool) {
	delim := []byte("+++")
	if bytes.Count(b, delim) < 2 {
		return "", nil, false
	}

	i := bytes.Index(b, delim) + len(delim)
	j := bytes.Index(b[i:], delim) + i

	fm := struct {
		Question string `toml:"question"`
	}{}
	if err := toml.Unmarshal(b[i:j], &fm); err != nil ||
		fm.Question == "" {
		return "", nil, false
	}

	return fm.Question, b[j+len(delim):], true
}
