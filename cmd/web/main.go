// Web interface to train a network and view the results.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jnb666/mlptrain/nnet"
	"github.com/jnb666/mlptrain/web"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Println("usage: web [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	var addr string
	var opts web.Options
	flag.StringVar(&addr, "addr", ":8080", "address to listen on")
	flag.StringVar(&opts.User, "user", "", "user name for login, no authentication if blank")
	flag.StringVar(&opts.Password, "password", os.Getenv("MLPTRAIN_PASSWORD"), "login password")
	flag.Parse()
	log.Println(nnet.Device())

	net, err := web.NewNetwork(model)
	nnet.CheckErr(err)
	r, err := web.NewRouter(net, opts)
	nnet.CheckErr(err)

	log.Printf("serving web page at http://localhost%s\n", addr)
	nnet.CheckErr(http.ListenAndServe(addr, r))
}
