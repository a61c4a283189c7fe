package web

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"strings"
)

//go:embed assets/*.html
var assets embed.FS

// Link is an entry in the main menu or the page options bar. Submit links are rendered
// as a button for the config form.
type Link struct {
	Url      string
	Name     string
	Selected bool
	Submit   bool
}

// Links is an ordered list of menu entries
type Links []Link

func (l Links) clone() Links {
	return append(Links{}, l...)
}

// mark entries whose url starts with prefix
func (l Links) selectPrefix(prefix string) {
	for i := range l {
		l[i].Selected = strings.HasPrefix(l[i].Url, prefix)
	}
}

// mark entries with one of the given names
func (l Links) selectNames(names []string) {
	for i := range l {
		l[i].Selected = false
		for _, name := range names {
			l[i].Selected = l[i].Selected || l[i].Name == name
		}
	}
}

// Templates holds the parsed page templates with the menu state for one page.
type Templates struct {
	*template.Template
	Heading template.HTML
	Menu    Links
	Options Links
}

// NewTemplates parses the embedded html templates and sets up the main menu.
func NewTemplates() (*Templates, error) {
	tmpl, err := template.ParseFS(assets, "assets/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{
		Template: tmpl,
		Menu: Links{
			{Name: "train", Url: "/train/stats"},
			{Name: "images", Url: "/images/all/test/1"},
			{Name: "config", Url: "/config"},
		},
	}, nil
}

// Clone returns a copy with its own menu and options, sharing the parsed templates.
func (t *Templates) Clone() *Templates {
	return &Templates{Template: t.Template, Menu: t.Menu.clone(), Options: t.Options.clone()}
}

// Select highlights the menu entry for the page at url.
func (t *Templates) Select(url string) *Templates {
	t.Menu.selectPrefix(url)
	return t
}

func (t *Templates) AddOption(l Link) *Templates {
	t.Options = append(t.Options, l)
	return t
}

func (t *Templates) SelectOptions(names []string) *Templates {
	t.Options.selectNames(names)
	return t
}

// Exec renders the named template, errors are logged and returned as a 500 response.
func (t *Templates) Exec(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		logError(w, err)
	}
}

func logError(w http.ResponseWriter, err error) {
	log.Println("error:", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
