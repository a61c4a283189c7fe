package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

const (
	imageScale = 3
	imageRows  = 8
	imageCols  = 10
)

// Options for the web server
type Options struct {
	User     string
	Password string
}

// NewRouter creates the handlers for each page. If a user name is given then requests
// require authentication.
func NewRouter(net *Network, opts Options) (*mux.Router, error) {
	t, err := NewTemplates()
	if err != nil {
		return nil, err
	}
	trainPage := NewTrainPage(t, net)
	imagePage := NewImagePage(t, net, imageScale, imageRows, imageCols)
	classifyPage := NewClassifyPage(t, net, imageScale*2)
	configPage := NewConfigPage(t, net)

	r := mux.NewRouter()
	if opts.User != "" {
		r.Use(NewAuthMiddleware(opts.User, opts.Password).Middleware)
	}
	r.Handle("/", http.RedirectHandler("/train/stats", http.StatusFound))

	r.Handle("/train", http.RedirectHandler("/train/stats", http.StatusFound))
	r.HandleFunc("/train/{cmd:(?:stats|start|stop|continue)}", trainPage.Base())
	r.HandleFunc("/stats", trainPage.Stats())
	r.HandleFunc("/ws", trainPage.Websocket())
	r.HandleFunc("/plot/{name:(?:loss|error)}.svg", trainPage.Plot())

	r.Handle("/images", http.RedirectHandler("/images/all/test/1", http.StatusFound))
	r.HandleFunc("/images/{mode:(?:all|errors)}/{dset}/{page:[0-9]+}", imagePage.Base())
	r.HandleFunc("/img/{dset}/{id:[0-9]+}", imagePage.Image())
	r.HandleFunc("/classify/{dset}/{id:[0-9]+}", classifyPage.Base())
	r.HandleFunc("/classify/{dset}/{id:[0-9]+}/probs.svg", classifyPage.Plot())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")
	r.HandleFunc("/config/reset", configPage.Reset())
	return r, nil
}
