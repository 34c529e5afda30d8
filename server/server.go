/*
Package server encapsulates walletd's http entry points: a version probe
and the page-facing websocket bus. Only the public registry is ever bound
here; everything behind this server is reachable from arbitrary web
content.
*/
package server

import (
	"fmt"
	"net/http"

	"github.com/golang/glog"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/utils"
)

// StartHTTPServer starts the page-facing http server. The function blocks
// when it succeeds. Remote page contexts reach the public registry through
// the /bus websocket endpoint.
func StartHTTPServer(serverPort uint, public bus.HandlerResolver) error {
	sp := fmt.Sprintf(":%v", serverPort)
	mux := http.NewServeMux()

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		if glog.V(5) {
			glog.Info("/version requested")
		}
		_, _ = w.Write([]byte(utils.Version))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if glog.V(7) {
			glog.Infoln("testing the server", r.URL.Path)
		}
		_, _ = w.Write([]byte(utils.Version))
	})

	mux.Handle("/bus", BusHandler(public))

	if glog.V(1) {
		glog.Info(utils.Settings.VersionInfo())
		glog.Infof("HTTP server on port: %v", serverPort)
	}
	server := http.Server{
		Addr:    sp,
		Handler: mux,
	}
	return server.ListenAndServe()
}
