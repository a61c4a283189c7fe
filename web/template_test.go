package web

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTemplates(t *testing.T) {
	base, err := NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	page := base.Clone().Select("/images")
	page.AddOption(Link{Name: "all"}).AddOption(Link{Name: "errors"})
	page.SelectOptions([]string{"errors"})
	if base.Menu[1].Selected || len(base.Options) != 0 {
		t.Error("clone shares menu state with base")
	}
	if !page.Menu[1].Selected || page.Menu[0].Selected {
		t.Errorf("menu selection: %+v", page.Menu)
	}
	if page.Options[0].Selected || !page.Options[1].Selected {
		t.Errorf("option selection: %+v", page.Options)
	}
	w := httptest.NewRecorder()
	page.Exec(w, "blank", page)
	if body := w.Body.String(); !strings.Contains(body, `class="selected">images`) || !strings.Contains(body, "no data") {
		t.Errorf("blank page:\n%s", body)
	}
	w = httptest.NewRecorder()
	page.Exec(w, "missing", page)
	if w.Code != 500 {
		t.Errorf("missing template: got %d", w.Code)
	}
}
